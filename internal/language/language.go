package language

import (
	"strings"
	"sync"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// spoken lists the languages speech providers report by English name
// ("portuguese") rather than by code.
var spoken = []string{
	"af", "ar", "bg", "ca", "cs", "cy", "da", "de", "el", "en", "es", "et",
	"fa", "fi", "fr", "gl", "he", "hi", "hr", "hu", "id", "is", "it", "ja",
	"ko", "lt", "lv", "ms", "nl", "no", "pl", "pt", "ro", "ru", "sk", "sl",
	"sr", "sv", "sw", "th", "tl", "tr", "uk", "ur", "vi", "zh",
}

// bibliographic ISO 639-2/B codes that predate the terminology codes.
var bibliographic = map[string]string{
	"chi": "zh", "cze": "cs", "dut": "nl", "fre": "fr", "ger": "de",
	"gre": "el", "per": "fa", "rum": "ro", "slo": "sk", "wel": "cy",
}

var byName = sync.OnceValue(func() map[string]string {
	names := display.English.Languages()
	out := make(map[string]string, len(spoken))
	for _, code := range spoken {
		if name := names.Name(xlanguage.Make(code)); name != "" {
			out[strings.ToLower(name)] = code
		}
	}
	return out
})

// ToISO2 converts a language code (ISO 639-1, 639-2 or BCP 47) or an English
// language name to ISO 639-1. Unknown two-letter codes pass through; anything
// else unrecognized yields "".
func ToISO2(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return ""
	}
	if code, ok := bibliographic[v]; ok {
		return code
	}
	if code, ok := byName()[v]; ok {
		return code
	}
	tag, err := xlanguage.Parse(v)
	if err != nil {
		if isLetters(v, 2) {
			return v
		}
		return ""
	}
	base, conf := tag.Base()
	if code := base.String(); conf != xlanguage.No && len(code) == 2 {
		return code
	}
	return ""
}

// DisplayName returns the English name for a language code or name, the
// upper-cased input when it is not recognized, or "Unknown" when blank.
func DisplayName(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "Unknown"
	}
	if code := ToISO2(trimmed); code != "" {
		if name := display.English.Languages().Name(xlanguage.Make(code)); name != "" {
			return name
		}
	}
	return strings.ToUpper(trimmed)
}

// Dominant returns the most frequent language among per-chunk detections,
// normalized to ISO 639-1. Ties go to the language seen first. Unrecognized
// values are ignored.
func Dominant(detected []string) string {
	counts := make(map[string]int, len(detected))
	var order []string
	for _, value := range detected {
		code := ToISO2(value)
		if code == "" {
			continue
		}
		if counts[code] == 0 {
			order = append(order, code)
		}
		counts[code]++
	}
	best := ""
	for _, code := range order {
		if counts[code] > counts[best] {
			best = code
		}
	}
	return best
}

func isLetters(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
