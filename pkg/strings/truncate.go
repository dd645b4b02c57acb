package strings

import (
	"strings"
)

// MaxErrorDetailLen bounds response bodies quoted in error messages.
const MaxErrorDetailLen = 512

// MinTruncateLen is the smallest maxLen Truncate honours: one character
// plus "...".
const MinTruncateLen = 4

// Truncate collapses all whitespace (including newlines) in s to single
// spaces and shortens the result to at most maxLen runes, ending in "..."
// when cut. Smaller maxLen values are raised to MinTruncateLen.
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
