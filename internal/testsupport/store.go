package testsupport

import (
	"context"
	"testing"

	"scribe/internal/config"
	"scribe/internal/store"
	"scribe/internal/transcript"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewTranscription creates an empty transcription for tests.
func NewTranscription(t testing.TB, st *store.Store, title string) *transcript.Transcription {
	t.Helper()

	tr, err := st.CreateTranscription(context.Background(), title, "")
	if err != nil {
		t.Fatalf("store.CreateTranscription: %v", err)
	}
	return tr
}

// MustCommit commits segments and returns the new version number.
func MustCommit(t testing.TB, st *store.Store, id string, segments []transcript.Segment, summary string) int {
	t.Helper()

	n, err := st.Commit(context.Background(), id, segments, "tester", summary)
	if err != nil {
		t.Fatalf("store.Commit: %v", err)
	}
	return n
}
