package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Locker is a cooperative mutual-exclusion primitive keyed by target path.
// The default implementation uses marker files so that independent process
// invocations exclude each other; an in-process implementation can be
// substituted when single-process use is guaranteed.
type Locker interface {
	// TryAcquire attempts to take the lock for key. A held lock older than
	// staleAfter is presumed abandoned by a crashed holder and is reclaimed.
	// Returns false when the lock is currently held elsewhere.
	TryAcquire(key string, staleAfter time.Duration) (bool, error)
	Release(key string) error
}

// FileLocker implements Locker with an exclusive-create marker file named
// after the target path. Creation with O_EXCL either succeeds or fails
// atomically, which is the whole trick: the filesystem arbitrates.
type FileLocker struct{}

func lockPath(key string) string { return key + ".lock" }

// TryAcquire creates the marker file for key. If the marker already exists
// and is older than staleAfter, it is deleted and creation is retried once.
func (FileLocker) TryAcquire(key string, staleAfter time.Duration) (bool, error) {
	marker := lockPath(key)
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(marker, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			return true, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return false, fmt.Errorf("create lock %s: %w", marker, err)
		}

		info, statErr := os.Stat(marker)
		if statErr != nil {
			if errors.Is(statErr, fs.ErrNotExist) {
				// Holder released between our create and stat; retry.
				continue
			}
			return false, fmt.Errorf("stat lock %s: %w", marker, statErr)
		}
		if time.Since(info.ModTime()) <= staleAfter {
			return false, nil
		}
		// Stale marker from a crashed holder: reclaim and retry the create.
		if rmErr := os.Remove(marker); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return false, fmt.Errorf("reclaim stale lock %s: %w", marker, rmErr)
		}
	}
	return false, nil
}

// Release removes the marker file. Releasing a lock that is already gone is
// not an error.
func (FileLocker) Release(key string) error {
	if err := os.Remove(lockPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("release lock %s: %w", lockPath(key), err)
	}
	return nil
}
