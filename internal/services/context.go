package services

import "context"

type contextKey int

const (
	sessionIDKey contextKey = iota
	transcriptionIDKey
	chunkSeqKey
)

// WithSessionID tags ctx with the recording session. Blank ids leave ctx as is.
func WithSessionID(ctx context.Context, id string) context.Context {
	return withString(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the recording session id carried by ctx.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, sessionIDKey)
}

// WithTranscriptionID tags ctx with the transcription a session feeds.
func WithTranscriptionID(ctx context.Context, id string) context.Context {
	return withString(ctx, transcriptionIDKey, id)
}

// TranscriptionIDFromContext returns the transcription id carried by ctx.
func TranscriptionIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, transcriptionIDKey)
}

// WithChunkSeq tags ctx with the chunk being transcribed.
func WithChunkSeq(ctx context.Context, seq int64) context.Context {
	return context.WithValue(ctx, chunkSeqKey, seq)
}

// ChunkSeqFromContext returns the chunk sequence number carried by ctx.
func ChunkSeqFromContext(ctx context.Context) (int64, bool) {
	seq, ok := ctx.Value(chunkSeqKey).(int64)
	return seq, ok
}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}
