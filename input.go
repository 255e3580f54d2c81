package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LinePrompter asks for run inputs one line at a time. It is used when
// stdin is not a terminal or the form is disabled with --no-tui.
type LinePrompter struct {
	scanner *bufio.Scanner
	out     io.Writer
	theme   *Theme
}

// NewLinePrompter creates a prompter reading from in and writing prompts to out
func NewLinePrompter(in io.Reader, out io.Writer, theme *Theme) *LinePrompter {
	return &LinePrompter{
		scanner: bufio.NewScanner(in),
		out:     out,
		theme:   theme,
	}
}

// readLine prints prompt and returns the next trimmed line
func (p *LinePrompter) readLine(prompt string) (string, error) {
	_, _ = fmt.Fprint(p.out, p.theme.Prompt(prompt))
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// AskTheme reads the theme. An empty answer is ErrNoTheme.
func (p *LinePrompter) AskTheme() (string, error) {
	theme, err := p.readLine("Enter a theme for the names: ")
	if err == io.EOF {
		return "", ErrNoTheme()
	}
	if err != nil {
		return "", err
	}
	if theme == "" {
		return "", ErrNoTheme()
	}
	return theme, nil
}

// AskCraziness keeps asking until it gets a level in 1..100
func (p *LinePrompter) AskCraziness() (int, error) {
	for {
		answer, err := p.readLine(fmt.Sprintf("Enter craziness level (%d-%d): ", MinCraziness, MaxCraziness))
		if err != nil {
			return 0, err
		}
		level, perr := parseCraziness(answer)
		if perr == nil {
			return level, nil
		}
		if errors.Is(perr, errCrazinessOutOfRange) {
			_, _ = fmt.Fprintln(p.out, p.theme.Warning(fmt.Sprintf("Please enter a number between %d and %d.", MinCraziness, MaxCraziness)))
		} else {
			_, _ = fmt.Fprintln(p.out, p.theme.Warning("Invalid input. Please enter a number."))
		}
	}
}
