// Package main hosts the scribe CLI entrypoint and command graph.
//
// The Cobra command tree feeds chunk files through a transcription session,
// then exposes the stored transcriptions for inspection, manual edits,
// insight derivation and export. Configuration loading, logging setup and
// dependency construction live in context.go so subcommands stay declarative.
package main
