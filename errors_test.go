package main

import (
	"errors"
	"strings"
	"testing"
)

func TestUserError(t *testing.T) {
	t.Run("error without cause", func(t *testing.T) {
		err := &UserError{Message: "test error"}
		if err.Error() != "test error" {
			t.Errorf("Error() = %q, want %q", err.Error(), "test error")
		}
	})

	t.Run("error with cause", func(t *testing.T) {
		cause := errors.New("underlying error")
		err := &UserError{Message: "test error", Cause: cause}
		expected := "test error: underlying error"
		if err.Error() != expected {
			t.Errorf("Error() = %q, want %q", err.Error(), expected)
		}
	})

	t.Run("unwrap returns cause", func(t *testing.T) {
		cause := errors.New("underlying error")
		err := &UserError{Message: "test error", Cause: cause}
		if err.Unwrap() != cause {
			t.Error("Unwrap() did not return the cause")
		}
	})
}

func TestFormatUserError(t *testing.T) {
	t.Run("formats UserError with suggestion", func(t *testing.T) {
		err := &UserError{
			Message:    "test error",
			Suggestion: "try this fix",
		}
		output := FormatUserError(err)
		if !strings.Contains(output, "test error") {
			t.Error("output should contain error message")
		}
		if !strings.Contains(output, "try this fix") {
			t.Error("output should contain suggestion")
		}
	})

	t.Run("formats generic error with auto-suggestion", func(t *testing.T) {
		err := errors.New("no valid credential sources")
		output := FormatUserError(err)
		if !strings.Contains(output, "no valid credential") {
			t.Error("output should contain error message")
		}
		if !strings.Contains(output, "aws configure") {
			t.Error("output should contain AWS credential suggestion")
		}
	})
}

func TestGetSuggestionForError(t *testing.T) {
	tests := []struct {
		name        string
		errStr      string
		shouldMatch string
	}{
		{
			name:        "ollama not running",
			errStr:      "dial tcp 127.0.0.1:11434: connect: connection refused",
			shouldMatch: "ollama serve",
		},
		{
			name:        "model not pulled",
			errStr:      `model "gemma3" not found, try pulling it first`,
			shouldMatch: "ollama pull",
		},
		{
			name:        "missing api key",
			errStr:      "openai: API key required",
			shouldMatch: "NAMECRITIC_API_KEY",
		},
		{
			name:        "search quota",
			errStr:      "Google API HttpError: quotaExceeded",
			shouldMatch: "--no-web-check",
		},
		{
			name:        "AWS credentials error",
			errStr:      "no valid credential sources",
			shouldMatch: "aws configure",
		},
		{
			name:        "AWS region error",
			errStr:      "region not specified",
			shouldMatch: "AWS_REGION",
		},
		{
			name:        "access denied",
			errStr:      "Access Denied",
			shouldMatch: "IAM",
		},
		{
			name:        "throttling",
			errStr:      "throttled by service",
			shouldMatch: "--parallel",
		},
		{
			name:        "timeout",
			errStr:      "context deadline exceeded (timeout)",
			shouldMatch: "NAMECRITIC_TIMEOUT",
		},
		{
			name:        "network error",
			errStr:      "connection refused",
			shouldMatch: "network",
		},
		{
			name:        "unknown error",
			errStr:      "some random error",
			shouldMatch: "", // no suggestion
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestion := getSuggestionForError(tt.errStr)
			if tt.shouldMatch == "" {
				if suggestion != "" {
					t.Errorf("expected no suggestion, got %q", suggestion)
				}
			} else {
				if !strings.Contains(strings.ToLower(suggestion), strings.ToLower(tt.shouldMatch)) {
					t.Errorf("suggestion %q should contain %q", suggestion, tt.shouldMatch)
				}
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	t.Run("ErrNoTheme", func(t *testing.T) {
		err := ErrNoTheme()
		if err.Message != "No theme provided" {
			t.Errorf("Message = %q, want %q", err.Message, "No theme provided")
		}
	})

	t.Run("ErrNoNames", func(t *testing.T) {
		cause := errors.New("empty response")
		err := ErrNoNames("coffee", cause)
		if !strings.Contains(err.Message, `"coffee"`) {
			t.Error("should include the theme")
		}
		if !errors.Is(err, cause) {
			t.Error("should wrap the cause")
		}
	})

	t.Run("ErrCrazinessRange", func(t *testing.T) {
		err := ErrCrazinessRange(150)
		if !strings.Contains(err.Message, "150") {
			t.Error("should include the level")
		}
	})

	t.Run("ErrUnknownProfile", func(t *testing.T) {
		err := ErrUnknownProfile("wild")
		for _, name := range ProfileNames() {
			if !strings.Contains(err.Suggestion, name) {
				t.Errorf("suggestion should list profile %q", name)
			}
		}
	})

	t.Run("ErrAWSConfig", func(t *testing.T) {
		cause := errors.New("config error")
		err := ErrAWSConfig(cause)
		if err.Cause != cause {
			t.Error("should preserve cause")
		}
		if !strings.Contains(err.Suggestion, "aws configure") {
			t.Error("should suggest aws configure")
		}
	})

	t.Run("ErrModelServer", func(t *testing.T) {
		err := ErrModelServer("http://localhost:11434", errors.New("refused"))
		if !strings.Contains(err.Message, "http://localhost:11434") {
			t.Error("should include host")
		}
		if !strings.Contains(err.Suggestion, "ollama serve") {
			t.Error("should suggest starting ollama")
		}
	})
}
