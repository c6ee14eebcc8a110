//go:build unix

package storage

import (
	"sync"

	"golang.org/x/sys/unix"
)

// umaskMu serializes umask changes, which are process wide.
var umaskMu sync.Mutex

// withCreateMask runs fn with the file-creation mask set to createMask and
// restores the previous mask when fn returns or panics.
func withCreateMask(fn func() error) error {
	umaskMu.Lock()
	defer umaskMu.Unlock()

	old := unix.Umask(createMask)
	defer unix.Umask(old)

	return fn()
}
