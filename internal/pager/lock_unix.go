//go:build unix

package pager

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fileLock is the underlying file descriptor an advisory lock was taken
// against.
type fileLock int

// lockFile takes an exclusive, non-blocking advisory lock on f so a
// second process cannot open the same data file concurrently — the
// pager has no in-process concurrency control of its own (spec.md §5
// "Concurrency & Resource Model" Non-goal: no multi-process coordination
// beyond refusing to open twice).
func lockFile(f *os.File) (fileLock, error) {
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return 0, fmt.Errorf("pager: flock: %w", err)
	}
	return fileLock(fd), nil
}

func unlockFile(l fileLock) error {
	if l == 0 {
		return nil
	}
	if err := unix.Flock(int(l), unix.LOCK_UN); err != nil {
		return fmt.Errorf("pager: unlock: %w", err)
	}
	return nil
}
