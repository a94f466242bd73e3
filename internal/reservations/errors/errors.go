package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid reservation ID format")

	// ErrLockHeld is returned when another caller already owns a space's lock document.
	ErrLockHeld = errors.New("reservation lock is held")

	// ErrWriteConflict is returned when a concurrent transaction already wrote a space's fence.
	ErrWriteConflict = errors.New("concurrent reservation write")
)
