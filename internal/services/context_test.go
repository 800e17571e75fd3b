package services_test

import (
	"context"
	"testing"

	"scribe/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSessionID(ctx, "sess-1")
	ctx = services.WithTranscriptionID(ctx, "tr-1")
	ctx = services.WithChunkSeq(ctx, 7)

	if id, ok := services.SessionIDFromContext(ctx); !ok || id != "sess-1" {
		t.Fatalf("unexpected session id: %v %v", id, ok)
	}
	if id, ok := services.TranscriptionIDFromContext(ctx); !ok || id != "tr-1" {
		t.Fatalf("unexpected transcription id: %v %v", id, ok)
	}
	if seq, ok := services.ChunkSeqFromContext(ctx); !ok || seq != 7 {
		t.Fatalf("unexpected chunk seq: %v %v", seq, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSessionID(ctx, "")
	ctx = services.WithTranscriptionID(ctx, "")
	if _, ok := services.SessionIDFromContext(ctx); ok {
		t.Fatal("expected no session value")
	}
	if _, ok := services.TranscriptionIDFromContext(ctx); ok {
		t.Fatal("expected no transcription value")
	}
	if _, ok := services.ChunkSeqFromContext(ctx); ok {
		t.Fatal("expected no chunk seq value")
	}
}
