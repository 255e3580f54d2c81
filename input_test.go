package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrompter(t *testing.T, input string) (*LinePrompter, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	var out bytes.Buffer
	return NewLinePrompter(strings.NewReader(input), &out, NewTheme(&ThemeSettings{Name: "default"})), &out
}

func TestLinePrompterAskTheme(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"trimmed", "  lakeside sauna \n", "lakeside sauna", false},
		{"empty line", "\n", "", true},
		{"end of input", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, out := newTestPrompter(t, tt.input)
			got, err := p.AskTheme()
			assert.Equal(t, "Enter a theme for the names: ", out.String())
			if tt.wantErr {
				var userErr *UserError
				require.ErrorAs(t, err, &userErr)
				assert.Equal(t, "No theme provided", userErr.Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLinePrompterAskCraziness(t *testing.T) {
	t.Run("retries until valid", func(t *testing.T) {
		p, out := newTestPrompter(t, "wild\n0\n250\n42\n")
		level, err := p.AskCraziness()
		require.NoError(t, err)
		assert.Equal(t, 42, level)

		text := out.String()
		assert.Equal(t, 4, strings.Count(text, "Enter craziness level (1-100): "))
		assert.Equal(t, 1, strings.Count(text, "Invalid input. Please enter a number."))
		assert.Equal(t, 2, strings.Count(text, "Please enter a number between 1 and 100."))
	})

	t.Run("end of input", func(t *testing.T) {
		p, _ := newTestPrompter(t, "abc\n")
		_, err := p.AskCraziness()
		assert.ErrorIs(t, err, io.EOF)
	})
}
