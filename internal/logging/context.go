package logging

import (
	"context"
	"log/slog"

	"scribe/internal/services"
)

// Standard structured logging keys.
const (
	FieldComponent       = "component"
	FieldSessionID       = "session_id"
	FieldTranscriptionID = "transcription_id"
	FieldChunkSeq        = "chunk_seq"
	FieldVersion         = "version"
	// FieldEventType classifies a log line for filtering (e.g. chunk_placeholder).
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact states what the user loses because of a warning.
	FieldImpact = "impact"
	// FieldErrorKind carries services.Kind for a failure.
	FieldErrorKind = "error_kind"
)

// WithContext returns logger tagged with the session, transcription and chunk
// identifiers carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	if id, ok := services.SessionIDFromContext(ctx); ok {
		args = append(args, slog.String(FieldSessionID, id))
	}
	if id, ok := services.TranscriptionIDFromContext(ctx); ok {
		args = append(args, slog.String(FieldTranscriptionID, id))
	}
	if seq, ok := services.ChunkSeqFromContext(ctx); ok {
		args = append(args, slog.Int64(FieldChunkSeq, seq))
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
