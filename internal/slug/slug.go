// Package slug derives URL-safe identifiers from display names.
//
// Every slug in the site is produced here. A slug is either empty or matches
// ^[a-z0-9]+(-[a-z0-9]+)*$, and Normalize is idempotent:
//
//	slug.Normalize("Glander Excavating & Sons") // "glander-excavating-and-sons"
package slug

import "strings"

// Normalize lowercases text, spells out "&" as "and", collapses every run of
// characters outside [a-z0-9] into a single dash and trims dashes from both
// ends. Any input, including the empty string, is accepted.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = strings.ReplaceAll(text, "&", "and")

	var b strings.Builder
	b.Grow(len(text))

	pendingDash := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if isSlugByte(c) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteByte(c)
			continue
		}
		pendingDash = true
	}

	return b.String()
}

// Valid reports whether s is already in canonical slug form.
// The empty string is valid.
func Valid(s string) bool {
	if s == "" {
		return true
	}
	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '-' {
			if s[i-1] == '-' {
				return false
			}
			continue
		}
		if !isSlugByte(c) {
			return false
		}
	}
	return true
}

func isSlugByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
