package indexer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// fileLock serializes reindexes across processes sharing one data directory.
type fileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

func newFileLock(path string) *fileLock {
	return &fileLock{path: path, flock: flock.New(path)}
}

// tryLock acquires the lock without blocking. It reports false if another
// process holds it.
func (l *fileLock) tryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.path, err)
	}
	l.locked = acquired
	return acquired, nil
}

// unlock is safe to call on a lock that was never acquired.
func (l *fileLock) unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.path, err)
	}
	return nil
}
