package chunk

import "strings"

var mimeExtensions = map[string]string{
	"audio/webm":   ".webm",
	"audio/ogg":    ".ogg",
	"audio/opus":   ".opus",
	"audio/wav":    ".wav",
	"audio/x-wav":  ".wav",
	"audio/wave":   ".wav",
	"audio/mpeg":   ".mp3",
	"audio/mp3":    ".mp3",
	"audio/mp4":    ".m4a",
	"audio/x-m4a":  ".m4a",
	"audio/flac":   ".flac",
	"audio/x-flac": ".flac",
	"video/webm":   ".webm",
}

// DefaultExtension is used when a mime hint is missing or unknown.
const DefaultExtension = ".webm"

// Extension maps a mime hint such as "audio/webm;codecs=opus" to a file
// extension providers recognize.
func Extension(mimeHint string) string {
	base, _, _ := strings.Cut(mimeHint, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	if ext, ok := mimeExtensions[base]; ok {
		return ext
	}
	return DefaultExtension
}
