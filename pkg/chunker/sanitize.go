package chunker

import "strings"

// Allowed reports whether r survives sanitization: printable ASCII
// (U+0020..U+007E) or the Latin-1 supplement (U+00A0..U+00FF).
func Allowed(r rune) bool {
	return (r >= 0x20 && r <= 0x7E) || (r >= 0xA0 && r <= 0xFF)
}

// Sanitize removes every rune outside the allowed ranges. It never grows its
// input and is idempotent.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if Allowed(r) {
			return r
		}
		return -1
	}, s)
}
