package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/services"
)

func TestPutWritesAtomicallyWithDigest(t *testing.T) {
	dir := t.TempDir()
	st := New(filepath.Join(dir, "audio"))
	data := []byte("RIFF....WAVEfmt ")

	blob, err := st.Put(context.Background(), "abc", bytes.NewReader(data), ".wav")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	sum := sha256.Sum256(data)
	if blob.SHA256 != hex.EncodeToString(sum[:]) || blob.Size != int64(len(data)) {
		t.Fatalf("unexpected blob %+v", blob)
	}
	if filepath.Base(blob.Path) != "abc.wav" {
		t.Fatalf("unexpected path %s", blob.Path)
	}

	entries, err := os.ReadDir(st.Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestPutCancelledLeavesNothing(t *testing.T) {
	st := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := st.Put(ctx, "abc", bytes.NewReader([]byte("x")), "wav"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, _, err := st.Open("abc"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected no blob, got %v", err)
	}
}

func TestPutReplacesOtherExtensions(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Append("rec", "webm", []byte("live")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	blob, err := st.Put(context.Background(), "rec", bytes.NewReader([]byte("studio")), "flac")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	rc, path, err := st.Open("rec")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if path != blob.Path || string(data) != "studio" {
		t.Fatalf("expected the replacement blob, got %s %q", path, data)
	}
	if _, err := os.Stat(filepath.Join(st.Root(), "rec.webm")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected the live copy to be removed, stat err=%v", err)
	}
}

func TestAppendOpenDelete(t *testing.T) {
	st := New(t.TempDir())
	for _, part := range []string{"one-", "two-", "three"} {
		if _, err := st.Append("sess", "webm", []byte(part)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	rc, path, err := st.Open("sess")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(got) != "one-two-three" || filepath.Ext(path) != ".webm" {
		t.Fatalf("unexpected blob %q at %s", got, path)
	}

	if err := st.Delete("sess"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := st.Delete("sess"); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
}

func TestRejectsUnsafeKeys(t *testing.T) {
	st := New(t.TempDir())
	for _, key := range []string{"", "../escape", "a/b", ".hidden", "glob*"} {
		if _, err := st.Append(key, "bin", []byte("x")); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Append(%q): expected ErrValidation, got %v", key, err)
		}
	}
}

func TestUnconfiguredRoot(t *testing.T) {
	st := New("")
	if _, err := st.Append("abc", "bin", nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
