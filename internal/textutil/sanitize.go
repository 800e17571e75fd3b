package textutil

import (
	"strings"
	"unicode"
)

// FileStem turns a title into a lowercase, hyphen-separated file name stem.
// Letters lose their accents; anything that is not a letter or digit becomes
// a separator. Empty results fall back to fallback.
func FileStem(title, fallback string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range Fold(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	if b.Len() == 0 {
		return fallback
	}
	stem := []rune(b.String())
	const maxRunes = 80
	if len(stem) > maxRunes {
		stem = stem[:maxRunes]
	}
	return strings.TrimRight(string(stem), "-")
}
