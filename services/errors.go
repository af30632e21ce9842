package services

import (
	"errors"
	"fmt"

	"progress-engine/catalog"
	"progress-engine/repos"
)

var (
	// ErrUnauthenticated means the caller identity is missing; raised by the HTTP layer only.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFound covers a missing user profile or track.
	ErrNotFound = repos.ErrNotFound
	// ErrTrackNotFound is also ErrNotFound.
	ErrTrackNotFound = catalog.ErrTrackNotFound
	// ErrDuplicateRecord is downgraded to a no-op by the Recorder and never returned by it.
	ErrDuplicateRecord = repos.ErrDuplicateRecord
	ErrValidation      = errors.New("validation failed")
	// ErrTransactionFailure means the atomic apply did not commit; retry with the same input.
	ErrTransactionFailure = errors.New("transaction failed")
)

// ValidationError reports the first invalid input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// TransactionError wraps the cause of a rolled back completion.
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction failed: %v", e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

func (e *TransactionError) Is(target error) bool { return target == ErrTransactionFailure }

func trackNotFound(slug string) error {
	return fmt.Errorf("%w: track %q: %w", ErrNotFound, slug, ErrTrackNotFound)
}
