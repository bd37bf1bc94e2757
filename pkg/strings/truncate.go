// Package strings holds small text helpers for console output.
package strings

import (
	"strings"
)

// DefaultMaxLen is the width used for single-line messages in console
// output and tables.
const DefaultMaxLen = 120

// MinTruncateLen is the smallest maxLen Truncate honours: one character plus "...".
const MinTruncateLen = 4

// Truncate collapses s to a single line and shortens it to maxLen runes,
// ending in "..." when something was cut. maxLen below MinTruncateLen is
// raised to MinTruncateLen.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
