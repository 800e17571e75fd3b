// Package language normalizes the language hints returned by speech
// providers. Providers disagree on format (OpenAI verbose JSON reports
// "portuguese", WhisperX reports "pt"), so everything is folded to
// ISO 639-1 before it reaches a transcription record.
package language
