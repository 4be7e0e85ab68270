// Package content provides deterministic text normalization and
// content-addressed hashing for duplicate detection.
package content

import "strings"

// Normalize lowercases, trims, collapses whitespace runs to a single space,
// and strips every character except alphanumerics and a fixed safe
// punctuation set. It is pure and total: any input, including the empty
// string, yields a deterministic result.
func Normalize(text string) string {
	lowered := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lowered))

	lastWasSpace := false
	for _, r := range lowered {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			if !lastWasSpace {
				b.WriteByte(' ')
				lastWasSpace = true
			}
		case isSafeRune(r):
			b.WriteRune(r)
			lastWasSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}

func isSafeRune(r rune) bool {
	if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
		return true
	}
	switch r {
	case '.', ',', '!', '?', ';', ':', '(', ')', '-':
		return true
	}
	return false
}
