package utils

import (
	"fmt"
	"unicode/utf8"
)

const (
	// DefaultMaxStringLength is the default maximum length for truncated strings
	DefaultMaxStringLength = 500
)

// Prefix returns at most maxRunes runes from the start of s without splitting
// a multi-byte character. A non-positive maxRunes yields the empty string.
func Prefix(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if len(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// TruncateString shortens s to at most maxLen runes, appending a suffix that
// records the original rune count so log readers know data was omitted.
// If maxLen is zero or negative, [DefaultMaxStringLength] is used instead.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxStringLength
	}
	total := utf8.RuneCountInString(s)
	if total <= maxLen {
		return s
	}
	return fmt.Sprintf("%s... (truncated, total: %d chars)", Prefix(s, maxLen), total)
}

// TruncateStringDefault truncates a string using DefaultMaxStringLength
func TruncateStringDefault(s string) string {
	return TruncateString(s, DefaultMaxStringLength)
}
