package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConflict is returned when a booking insert loses to an overlapping
	// active booking on the same resource and date.
	ErrConflict = errors.New("persistence: slot conflict")
	// ErrConstraintViolation is returned when a check constraint rejects a
	// write.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a record cannot be written or
	// removed because related records reference it.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
)
