// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runlock keeps two heicconv processes from converting the same
// path at the same time. Locks are advisory flock files kept outside the
// photo tree, one per absolute source path.
package runlock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrBusy is returned when another process holds the lock for a path.
var ErrBusy = errors.New("another heicconv run is converting this path")

// Lock is a held run lock.
type Lock struct {
	path string
	fl   *flock.Flock
}

// DefaultDir returns the directory lock files live in.
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "heicconv", "locks")
	}
	return filepath.Join(os.TempDir(), "heicconv-locks")
}

// Acquire takes the lock for target without blocking. It returns ErrBusy
// when the lock is held elsewhere.
func Acquire(lockDir, target string) (*Lock, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", target, err)
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	path := filepath.Join(lockDir, hex.EncodeToString(sum[:8])+".lock")
	fl := flock.New(path)

	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, abs)
	}
	return &Lock{path: path, fl: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release drops the lock. The lock file itself is left in place.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
