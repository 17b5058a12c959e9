package enigma

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize trims, uppercases and strips accents so "jardin des plantés "
// and "JARDIN DES PLANTES" compare equal. Inner runs of spaces collapse to
// one.
func Normalize(answer string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, answer)
	if err != nil {
		folded = answer
	}
	return strings.Join(strings.Fields(strings.ToUpper(folded)), " ")
}
