package lockfile_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yuntianze/trading-platform/lockfile"
)

func TestAcquireExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.lock")

	first, err := lockfile.Acquire(path)
	require.NoError(t, err)

	// A second open file description cannot take the flock.
	_, err = lockfile.Acquire(path)
	require.ErrorIs(t, err, lockfile.ErrLockHeld)

	require.NoError(t, first.Release())

	second, err := lockfile.Acquire(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

func TestReleaseNil(t *testing.T) {
	var l *lockfile.Lock
	require.NoError(t, l.Release())
}
