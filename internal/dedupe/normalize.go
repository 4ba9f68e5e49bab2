package dedupe

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes keyword text for comparison. The input is
// lowercased, outer whitespace is trimmed, internal whitespace runs collapse
// to a single space, and combining diacritical marks are stripped after NFD
// decomposition so accented and unaccented forms compare equal.
//
// Normalize is pure, total, and idempotent.
func Normalize(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}

	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
