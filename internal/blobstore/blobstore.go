// Package blobstore keeps the original audio of a transcription on disk so a
// person can re-listen to it. The pipeline writes to it but never reads it.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"scribe/internal/services"
)

// Store writes audio blobs under one root directory, one file per key.
type Store struct {
	root string
	mu   sync.Mutex
}

// Blob describes a stored file.
type Blob struct {
	Key    string
	Path   string
	Size   int64
	SHA256 string
}

// New returns a Store rooted at dir. The directory is created lazily.
func New(dir string) *Store {
	return &Store{root: strings.TrimSpace(dir)}
}

// Root returns the storage directory.
func (s *Store) Root() string {
	return s.root
}

// Put streams r into key's blob atomically: data lands in a temp file that is
// renamed into place only after a complete, verified write. Blobs stored
// under key with another extension are removed afterwards.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, ext string) (Blob, error) {
	path, err := s.path(key, ext)
	if err != nil {
		return Blob{}, err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return Blob{}, fmt.Errorf("create blob dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.root, "."+key+"-*.partial")
	if err != nil {
		return Blob{}, fmt.Errorf("create temp blob: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), contextReader{ctx: ctx, r: r})
	if err != nil {
		return Blob{}, fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return Blob{}, fmt.Errorf("sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Blob{}, fmt.Errorf("close blob: %w", err)
	}
	info, err := os.Stat(tmpPath)
	if err != nil {
		return Blob{}, fmt.Errorf("stat blob: %w", err)
	}
	if info.Size() != written {
		return Blob{}, fmt.Errorf("blob size mismatch: wrote %d bytes, found %d", written, info.Size())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Rename(tmpPath, path); err != nil {
		return Blob{}, fmt.Errorf("commit blob: %w", err)
	}
	stale, err := s.matches(key)
	if err != nil {
		return Blob{}, err
	}
	for _, other := range stale {
		if other != path {
			if err := os.Remove(other); err != nil && !errors.Is(err, os.ErrNotExist) {
				return Blob{}, fmt.Errorf("remove replaced blob: %w", err)
			}
		}
	}
	return Blob{Key: key, Path: path, Size: written, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// Append adds data to the end of key's blob, creating it if needed. Live
// sessions call it once per chunk in capture order.
func (s *Store) Append(key, ext string, data []byte) (string, error) {
	path, err := s.path(key, ext)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("open blob: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("append blob: %w", err)
	}
	return path, f.Close()
}

// Open returns a reader for the first blob stored under key.
func (s *Store) Open(key string) (io.ReadCloser, string, error) {
	matches, err := s.matches(key)
	if err != nil {
		return nil, "", err
	}
	if len(matches) == 0 {
		return nil, "", services.Wrap(services.ErrNotFound, "blobstore", "open", fmt.Sprintf("no audio for %q", key), nil)
	}
	f, err := os.Open(matches[0])
	if err != nil {
		return nil, "", fmt.Errorf("open blob: %w", err)
	}
	return f, matches[0], nil
}

// Delete removes every blob stored under key. Missing blobs are not an error.
func (s *Store) Delete(key string) error {
	matches, err := s.matches(key)
	if err != nil {
		return err
	}
	var errs []error
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) matches(key string) ([]string, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(s.root, key+".*"))
	if err != nil {
		return nil, fmt.Errorf("glob blobs: %w", err)
	}
	return matches, nil
}

func (s *Store) path(key, ext string) (string, error) {
	if s == nil || s.root == "" {
		return "", services.Wrap(services.ErrConfiguration, "blobstore", "path", "audio directory not configured", nil)
	}
	if err := validateKey(key); err != nil {
		return "", err
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	if strings.ContainsAny(ext, `/\`) {
		return "", services.Wrap(services.ErrValidation, "blobstore", "path", "invalid extension", nil)
	}
	return filepath.Join(s.root, key+"."+ext), nil
}

func validateKey(key string) error {
	if key == "" || key != filepath.Base(key) || strings.ContainsAny(key, `/\*?[`) || strings.HasPrefix(key, ".") {
		return services.Wrap(services.ErrValidation, "blobstore", "key", fmt.Sprintf("invalid key %q", key), nil)
	}
	return nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if c.ctx != nil {
		if err := c.ctx.Err(); err != nil {
			return 0, err
		}
	}
	return c.r.Read(p)
}
