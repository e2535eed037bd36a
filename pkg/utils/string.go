package utils

import "unicode/utf8"

// Truncate shortens s to at most maxLen runes by dropping its beginning, so
// the file name at the end of a long path stays visible. A shortened string
// starts with "...".
func Truncate(s string, maxLen int) string {
	n := utf8.RuneCountInString(s)
	if n <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}

	runes := []rune(s)
	return "..." + string(runes[n-(maxLen-3):])
}
