package chunk

import (
	"context"
	"time"
)

// AudioChunk is one captured slice of audio. Seq is assigned at capture time
// and is strictly increasing within a session, though gaps are allowed.
type AudioChunk struct {
	Seq         int64
	Audio       []byte
	MimeType    string
	StartOffset time.Duration
	Duration    time.Duration
	// Label carries an upstream diarization tag such as "S2" or "[MUSIC]".
	Label string
}

// End returns the capture offset where the chunk stops.
func (c AudioChunk) End() time.Duration {
	return c.StartOffset + c.Duration
}

// Result is the immutable outcome of transcribing one chunk.
type Result struct {
	Seq        int64
	Text       string
	Confidence *float64
	Start      time.Duration
	End        time.Duration
	Language   string
	Label      string
	// Placeholder marks a slot force-emitted after a failure or timeout.
	Placeholder bool
}

// Transcription is what a speech-to-text provider returns for one chunk.
type Transcription struct {
	Text       string
	Language   string
	Confidence *float64
}

// SpeechToText transcribes raw audio bytes. Implementations should
// auto-detect language and return empty text for silent input.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte, mimeHint string) (Transcription, error)
}

// NoSpeechError is implemented by provider errors that can report, from a
// structured code, that the audio contained no speech.
type NoSpeechError interface {
	error
	NoSpeech() bool
}
