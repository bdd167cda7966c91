package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrLockTimeout is returned when a row lock could not be acquired in time
	ErrLockTimeout = errors.New("lock wait timeout")

	// ErrForeignKeyViolation is returned when a foreign key constraint fails
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrUniqueViolation is returned when a unique constraint fails
	ErrUniqueViolation = errors.New("unique violation")
)
