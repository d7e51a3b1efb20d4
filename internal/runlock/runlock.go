// Package runlock stops two cron invocations from running the pipeline
// over the same data directory at once.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileName is created inside the data directory.
const FileName = "jobhunter.lock"

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("another jobhunter run is in progress")

// Lock is a held run lock.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock without waiting.
func Acquire(dataDir string) (*Lock, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("runlock mkdir %s: %w", dataDir, err)
	}
	fl := flock.New(filepath.Join(dataDir, FileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("runlock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{fl: fl}, nil
}

// Path of the lock file.
func (l *Lock) Path() string { return l.fl.Path() }

// Release unlocks. The file is left in place.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
