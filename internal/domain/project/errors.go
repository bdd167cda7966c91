package project

import (
	"errors"
	"fmt"

	"github.com/ganot/hourbank/internal/repository"
)

var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound indicates the referenced project doesn't exist.
	ErrNotFound = errors.New("project not found")
	// ErrConflict indicates the operation clashes with the current state.
	ErrConflict = errors.New("conflict")
	// ErrConcurrency indicates the project lock could not be acquired in time.
	ErrConcurrency = errors.New("project is busy, retry later")
)

// Error carries a caller-facing message and the kind of failure.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Validationf returns an ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflictf returns an ErrConflict with a formatted message.
func Conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns an ErrNotFound naming the project.
func NotFound(id string) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("project %s not found", id)}
}

// Message returns the caller-facing message of err, falling back to the
// generic text of its kind.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// StoreError translates repository failures for project id into the domain
// taxonomy. Errors that are already domain errors pass through unchanged.
func StoreError(id string, err error) error {
	var domainErr *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return NotFound(id)
	case errors.Is(err, repository.ErrLockTimeout):
		return &Error{Kind: ErrConcurrency, Message: fmt.Sprintf("project %s is locked by another operation, retry later", id)}
	default:
		return err
	}
}
