// Package namekey folds place names into stable lookup keys.
//
// Key equality is the only matching criterion used against the offline place
// data — there is no fuzzy or partial matching anywhere downstream, so every
// writer and every reader of the index must go through Normalize.
package namekey

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks left over after NFKD decomposition,
// folding "Zürich" → "Zurich" and "São" → "Sao".
var stripMarks = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
)

// Normalize turns a place or city string into its lookup key: casefolded,
// diacritics stripped, everything outside [a-z0-9 ] dropped, whitespace runs
// collapsed to a single space. It is deterministic, never fails, and is
// idempotent. Empty input yields "".
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case r < 128:
			// ASCII punctuation and whitespace separate words
			// ("St. Gallen" → "st gallen").
			space = true
		default:
			// Non-ASCII leftovers (CJK, symbols) are dropped outright.
		}
	}
	return b.String()
}
