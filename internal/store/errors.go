package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Update when no entry has the given ID.
var ErrNotFound = errors.New("entry not found")

// WriteError reports a failed durable write. It is never swallowed:
// a failed save means the in-memory and durable views have diverged,
// so the caller must see it.
type WriteError struct {
	// Key is the storage key the write targeted.
	Key string
	// Err is the underlying storage failure.
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("storage write for %q failed: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
