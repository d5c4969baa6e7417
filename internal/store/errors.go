package store

import "errors"

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist in the store.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidRecord is returned when a record fails validation before
	// being stored, for example a non-positive retention period.
	ErrInvalidRecord = errors.New("invalid record")
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
