// Package assembly folds the ordered chunk result stream into timed,
// speaker-attributed segments.
//
// The assembler performs no audio analysis. Speaker and event identity come
// from a Diarizer that labels each chunk upstream; the assembler only
// stitches text and decides segment boundaries, so identical ordered input
// always yields identical segments.
package assembly
