package logutil

import "strings"

// SanitizeForLog flattens user-provided strings into a single log-safe line.
// Newlines would let a caller forge log entries; other control characters can
// corrupt terminals tailing the log.
func SanitizeForLog(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		if r < 32 {
			return -1
		}
		return r
	}, s)
}
