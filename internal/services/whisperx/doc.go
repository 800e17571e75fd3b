// Package whisperx runs a local WhisperX install (via uvx) as a
// chunk.SpeechToText backend.
//
// Each chunk is written to a scratch directory, transcribed to JSON output,
// and read back. Language detection comes from the JSON payload; WhisperX
// does not report a per-chunk confidence.
package whisperx
