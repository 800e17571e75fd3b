// Package session runs one recording session end to end.
//
// A Session accepts audio chunks while Open, fans them out to a bounded
// pool of transcription workers, and funnels every outcome through a single
// consumer goroutine that owns the chunk.Sequencer and assembly.Assembler.
// Finalize drains the pool, reconciles punctuation once, and commits
// version 1 with editor "system". Abort discards everything and commits
// nothing.
package session
