package utils

import (
	"regexp"
	"strings"
)

// ANSI color code regex pattern
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes ANSI escape sequences from a string
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// TruncateWithEllipsis shortens text to at most maxLen characters,
// appending "..." when anything was cut.
func TruncateWithEllipsis(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if len(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	return text[:maxLen-3] + "..."
}

// FirstNonEmptyLine returns the first line of s that contains
// non-whitespace content, trimmed.
func FirstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
