package util

import "strings"

// TruncateRunes cuts s to at most maxRunes characters (rune-based, not byte-based).
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == maxRunes {
			return s[:i]
		}
		count++
	}
	return s
}

// CollapseWhitespace replaces every whitespace run with a single space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContainsAny reports whether s contains at least one of the substrings.
func ContainsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// RuneLen counts characters rather than bytes.
func RuneLen(s string) int {
	return len([]rune(s))
}
