//go:build windows

package pager

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// fileLock is the underlying Windows file handle an advisory lock was
// taken against.
type fileLock windows.Handle

// lockFile takes an exclusive, non-blocking advisory lock on f's full
// range so a second process cannot open the same data file concurrently.
func lockFile(f *os.File) (fileLock, error) {
	h := windows.Handle(f.Fd())
	ol := new(windows.Overlapped)
	const lockfileExclusiveLock = 0x2
	const reserved, lenLow, lenHigh = 0, ^uint32(0), ^uint32(0)
	if err := windows.LockFileEx(h, lockfileExclusiveLock|0x1, reserved, lenLow, lenHigh, ol); err != nil {
		return 0, fmt.Errorf("pager: LockFileEx: %w", err)
	}
	return fileLock(h), nil
}

func unlockFile(l fileLock) error {
	if l == 0 {
		return nil
	}
	ol := new(windows.Overlapped)
	const lenLow, lenHigh = ^uint32(0), ^uint32(0)
	if err := windows.UnlockFileEx(windows.Handle(l), 0, lenLow, lenHigh, ol); err != nil {
		return fmt.Errorf("pager: UnlockFileEx: %w", err)
	}
	return nil
}
