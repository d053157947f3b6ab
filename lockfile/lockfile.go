// Package lockfile guards single-instance startup with an exclusive advisory
// flock on a well-known file.
package lockfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var ErrLockHeld = errors.New("lock file held by another instance")

type Lock struct {
	f *os.File
}

// Acquire takes the exclusive lock without blocking. ErrLockHeld means
// another instance owns the data directory.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, path)
	}
	return &Lock{f: f}, nil
}

// Release drops the lock. The file stays behind for the next instance.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	return l.f.Close()
}
