// Package roomkey turns path-like resource identifiers into canonical
// room keys, so that every route to the same editable resource lands
// in the same room ("/admin/pages/12/edit" -> "adminpages12edit").
package roomkey

import (
	"strings"
	"unicode"
)

// Normalize lower-cases the input, drops everything that is not a
// letter, digit, space or hyphen, then collapses runs of spaces and
// hyphens into single hyphens.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	hyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			hyphen = true
		}
	}
	return b.String()
}
