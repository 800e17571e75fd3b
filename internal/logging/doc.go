// Package logging builds the slog loggers scribe writes with.
//
// Two formats are supported. The console handler prints one line per record
// with the component and chunk sequence pulled into the prefix; the JSON
// handler keeps slog's layout with ts/level/msg keys. WithContext tags a
// logger with the session, transcription and chunk ids carried by a context,
// and WarnWithContext enforces the event_type/error_hint/impact fields every
// warning is expected to carry.
package logging
