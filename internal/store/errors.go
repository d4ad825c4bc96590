package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a result with an already-used identifier).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific errors

	// ErrResultNotFound indicates that the requested exam result does not exist.
	ErrResultNotFound = fmt.Errorf("%w: exam result", ErrNotFound)

	// ErrResultExists indicates that an exam result with the given
	// identifier has already been persisted. Callers must retry with a
	// fresh identifier or surface the error; a scored result is never
	// silently dropped.
	ErrResultExists = fmt.Errorf("%w: exam result", ErrDuplicate)

	// ErrStatNotFound indicates that no running aggregate exists for the
	// requested (user, category) pair.
	ErrStatNotFound = fmt.Errorf("%w: user category stat", ErrNotFound)

	// ErrTaskNotFound indicates that the queue holds no task with the
	// given identifier.
	ErrTaskNotFound = fmt.Errorf("%w: queued task", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
