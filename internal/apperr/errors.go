// Package apperr defines the shared error vocabulary of the application.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
)

// ConsistencyError reports a persisted row whose stored content hash does
// not match the hash recomputed from its own content. The store baseline
// is corrupt at that point; callers must abort the batch instead of
// layering new history on top of it.
type ConsistencyError struct {
	Name     string
	Version  int
	Stored   string
	Computed string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency: document %q version %d: stored hash %s, recomputed %s",
		e.Name, e.Version, e.Stored, e.Computed)
}

// IsConsistency reports whether err wraps a ConsistencyError.
func IsConsistency(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}
