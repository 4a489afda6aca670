// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package editlock serializes writers of a database file.
//
// The lock is an advisory flock(2) on a sibling "<file>.lock", so it
// survives the atomic rename that replaces the database itself. Locks
// are per open file description: two Acquire calls in the same process
// conflict just like calls from two processes do.
package editlock

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrLocked is returned by [Acquire] when another writer holds the
// lock.
var ErrLocked = errors.New("database is being edited by another process")

// Lock is a held edit lock.
type Lock struct {
	path string
	fd   int
}

// Acquire takes the edit lock of the database at path without
// waiting.
func Acquire(path string) (*Lock, error) {
	lockPath := path + ".lock"
	fd, err := unix.Open(lockPath, unix.O_CREAT|unix.O_RDWR|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", lockPath, err)
	}
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("locking %s: %w", lockPath, err)
	}
	return &Lock{path: lockPath, fd: fd}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release drops the lock. The lock file is left in place; removing it
// would race with a writer that has opened but not yet locked it.
func (l *Lock) Release() error {
	if l.fd < 0 {
		return nil
	}
	unlockErr := unix.Flock(l.fd, unix.LOCK_UN)
	closeErr := unix.Close(l.fd)
	l.fd = -1
	return errors.Join(unlockErr, closeErr)
}
