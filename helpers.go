package main

import (
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	boldStarRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	boldUnderscoreRe = regexp.MustCompile(`__([^_]+)__`)
	inlineCodeRe     = regexp.MustCompile("`([^`]+)`")
)

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// isTerminal reports whether f is attached to a character device
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// stripMarkdown removes common markdown formatting from text for terminal display
func stripMarkdown(text string) string {
	text = boldStarRe.ReplaceAllString(text, "$1")
	text = boldUnderscoreRe.ReplaceAllString(text, "$1")
	return inlineCodeRe.ReplaceAllString(text, "$1")
}

// wrapText wraps text to a specified width, preserving paragraph breaks
func wrapText(text string, width int) []string {
	var result []string
	paragraphs := strings.Split(text, "\n")

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			result = append(result, "")
			continue
		}

		var line string
		for _, word := range strings.Fields(para) {
			if line == "" {
				line = word
			} else if utf8.RuneCountInString(line)+1+utf8.RuneCountInString(word) <= width {
				line += " " + word
			} else {
				result = append(result, line)
				line = word
			}
		}
		if line != "" {
			result = append(result, line)
		}
	}

	return result
}
