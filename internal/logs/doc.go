// Package logs tails the scribe log file for the CLI.
//
// It reads the last N lines with bounded memory, resumes from byte offsets
// and polls for appended lines in follow mode. A Match filter narrows output
// to one session or transcription id, which the pipeline attaches to every
// log line it writes.
package logs
