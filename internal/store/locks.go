package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 25 * time.Millisecond

// commitLocks hands out one mutex per transcription id. Entries are dropped
// when the last holder releases them.
type commitLocks struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newCommitLocks() *commitLocks {
	return &commitLocks{locks: make(map[string]*keyedLock)}
}

func (c *commitLocks) acquire(key string) func() {
	c.mu.Lock()
	lock, ok := c.locks[key]
	if !ok {
		lock = &keyedLock{}
		c.locks[key] = lock
	}
	lock.refs++
	c.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		c.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(c.locks, key)
		}
		c.mu.Unlock()
	}
}

// lockTranscription enters the commit critical section for id: first the
// in-process mutex, then an advisory file lock shared with other processes
// using the same data directory.
func (s *Store) lockTranscription(ctx context.Context, id string) (func(), error) {
	release := s.locks.acquire(id)
	if s.lockDir == "" {
		return release, nil
	}
	if err := os.MkdirAll(s.lockDir, 0o755); err != nil {
		release()
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fileLock := flock.New(filepath.Join(s.lockDir, id+".lock"))
	ok, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		release()
		return nil, fmt.Errorf("acquire commit lock: %w", err)
	}
	if !ok {
		release()
		return nil, fmt.Errorf("acquire commit lock: %s busy", fileLock.Path())
	}
	return func() {
		_ = fileLock.Unlock()
		release()
	}, nil
}

func (s *Store) removeLockFile(id string) {
	if s.lockDir == "" {
		return
	}
	_ = os.Remove(filepath.Join(s.lockDir, id+".lock"))
}
