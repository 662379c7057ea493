package store

import "fmt"

// CorruptError reports that an existing persisted file failed to parse.
// It is deliberately distinct from a missing file: corrupt state must never
// be silently overwritten with fresh data.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt store file %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// LockTimeoutError reports that a lock could not be acquired within the
// configured wait. No mutation was applied.
type LockTimeoutError struct {
	Path    string
	Retries int
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for lock on %s after %d attempts", e.Path, e.Retries)
}
