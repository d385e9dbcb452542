package club

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// FoldName lowercases a display name, strips diacritics and punctuation,
// and collapses whitespace, so "São João CC" and "sao joao cc" compare
// equal, as do "Harshvardhan?" and "harshvardhan".
func FoldName(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	folded = strings.Map(func(r rune) rune {
		switch {
		case r == '\'' || r == '’':
			return -1
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '/':
			return r
		default:
			return ' '
		}
	}, folded)
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// NameMatches reports whether the folded needle appears in the folded
// candidate name.
func NameMatches(candidate, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(FoldName(candidate), FoldName(needle))
}
