// Package services defines shared utilities consumed by the transcription
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that carry session IDs, transcription IDs and chunk
//     sequence numbers for logging.WithContext.
//   - Structured error markers plus the Wrap helper so every component
//     reports failures with the same taxonomy (empty chunk, provider
//     failure, version conflict, ...).
//
// Provider adapters live in subpackages (llm, openaistt, whisperx) and are
// only reached through the capability interfaces declared by the pipeline
// packages.
package services
