package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases text and strips combining marks so "Olá" and "ola" compare
// equal. Punctuation is left in place.
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}

// Words splits text into folded word tokens. Runs of letters and digits form
// a word; apostrophes and hyphens inside a word are kept ("d'água", "bem-vindo").
func Words(text string) []string {
	folded := Fold(text)
	var (
		words   []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() == 0 {
			return
		}
		words = append(words, strings.Trim(current.String(), "'-"))
		current.Reset()
	}
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		case r == '-' && current.Len() > 0:
			current.WriteRune(r)
		case (r == '\'' || r == '’') && current.Len() > 0:
			current.WriteRune('\'')
		default:
			flush()
		}
	}
	flush()
	out := words[:0]
	for _, w := range words {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// WordsEqual reports whether two texts carry the same word sequence once
// punctuation, casing and accents are ignored.
func WordsEqual(a, b string) bool {
	wa, wb := Words(a), Words(b)
	if len(wa) != len(wb) {
		return false
	}
	for i := range wa {
		if wa[i] != wb[i] {
			return false
		}
	}
	return true
}

// CountWords returns the number of folded word tokens in text.
func CountWords(text string) int {
	return len(Words(text))
}
