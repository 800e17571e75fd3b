package language

import "testing"

func TestToISO2ProviderHints(t *testing.T) {
	cases := map[string]struct {
		hints []string
		want  string
	}{
		"iso 639-1":          {[]string{"pt", "PT", " pt "}, "pt"},
		"iso 639-2 terminal": {[]string{"por", "POR"}, "pt"},
		"iso 639-2 biblio":   {[]string{"ger", "deu"}, "de"},
		"chinese":            {[]string{"chi", "zho", "zh", "chinese"}, "zh"},
		"dutch":              {[]string{"dut", "nld", "Dutch"}, "nl"},
		"whisper names":      {[]string{"portuguese", "Portuguese", "PORTUGUESE"}, "pt"},
		"bcp47 region":       {[]string{"pt-BR", "pt_br", "pt-PT"}, "pt"},
		"bcp47 english":      {[]string{"en-US", "en-gb", "english"}, "en"},
		"ukrainian":          {[]string{"uk", "ukr", "ukrainian"}, "uk"},
		"no two-letter code": {[]string{"yue"}, ""},
		"unknown three":      {[]string{"xyz", "qqq"}, ""},
		"blank":              {[]string{"", "   "}, ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			for _, hint := range tc.hints {
				if got := ToISO2(hint); got != tc.want {
					t.Fatalf("ToISO2(%q) = %q, want %q", hint, got, tc.want)
				}
			}
		})
	}
}

func TestToISO2UnknownTwoLetterPassesThrough(t *testing.T) {
	if got := ToISO2("XY"); got != "xy" {
		t.Fatalf("ToISO2(XY) = %q, want xy", got)
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"pt", "Portuguese"},
		{"pt-BR", "Portuguese"},
		{"por", "Portuguese"},
		{"fre", "French"},
		{"japanese", "Japanese"},
		{"zho", "Chinese"},
		{"xyz", "XYZ"},
		{"", "Unknown"},
	}
	for _, tc := range cases {
		if got := DisplayName(tc.in); got != tc.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDominant(t *testing.T) {
	cases := []struct {
		name     string
		detected []string
		want     string
	}{
		{"mixed spellings count together", []string{"portuguese", "pt", "english"}, "pt"},
		{"tie goes to first seen", []string{"en", "pt"}, "en"},
		{"later majority wins", []string{"en", "pt", "pt-BR"}, "pt"},
		{"unrecognized ignored", []string{"", "xyz"}, ""},
		{"nothing detected", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Dominant(tc.detected); got != tc.want {
				t.Fatalf("Dominant(%v) = %q, want %q", tc.detected, got, tc.want)
			}
		})
	}
}
