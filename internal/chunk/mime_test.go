package chunk

import "testing"

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"audio/webm;codecs=opus": ".webm",
		"AUDIO/WAV":              ".wav",
		"audio/mpeg":             ".mp3",
		"":                       DefaultExtension,
		"application/x-unknown":  DefaultExtension,
	}
	for hint, want := range tests {
		if got := Extension(hint); got != want {
			t.Fatalf("Extension(%q) = %q, want %q", hint, got, want)
		}
	}
}
