// Package lockfile provides the process-exclusion advisory lock the engine
// holds for the duration of any operation that writes a commit to
// refs/sterna/snapshot (spec.md §5).
package lockfile

import (
	"fmt"

	"github.com/gofrs/flock"
	"github.com/qmx/sterna/internal/errs"
)

// Lock wraps an advisory exclusive file lock on a fixed path inside the
// host repository's metadata directory (sterna.lock).
type Lock struct {
	flock *flock.Flock
	path  string
}

// New returns a Lock for the given path. The lock file is created lazily
// on first acquisition; it is never removed, only unlocked.
func New(path string) *Lock {
	return &Lock{flock: flock.New(path), path: path}
}

// Acquire blocks until the exclusive lock is held. Release must be called
// on every exit path, including error paths, once acquisition succeeds.
func (l *Lock) Acquire() error {
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("%w: %v", errs.LockFailed(l.path), err)
	}
	return nil
}

// Release unlocks the file. It is safe to call even if Acquire was never
// called or already failed.
func (l *Lock) Release() error {
	return l.flock.Unlock()
}

// WithLock acquires the lock, runs fn, and releases the lock before
// returning, regardless of whether fn returns an error.
func WithLock(path string, fn func() error) error {
	l := New(path)
	if err := l.Acquire(); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
