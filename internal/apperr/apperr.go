package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Engine error kinds. Services wrap these with context via fmt.Errorf("%w"),
// handlers map them to HTTP statuses with StatusFor.
var (
	ErrNotFound            = errors.New("not found")
	ErrTaskLocked          = errors.New("task locked")
	ErrAlreadyCompleted    = errors.New("already completed")
	ErrSubmissionFinalized = errors.New("submission finalized")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrConflict            = errors.New("conflict")
	ErrForbidden           = errors.New("forbidden")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Conflictf wraps ErrConflict with a formatted message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}

// StatusFor maps an engine error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrTaskLocked),
		errors.Is(err, ErrAlreadyCompleted),
		errors.Is(err, ErrSubmissionFinalized),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
