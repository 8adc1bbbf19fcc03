// Package apperror defines the closed set of error kinds the service layer
// returns. Callers classify errors with errors.Is against the sentinels below;
// the HTTP layer maps each kind to a status code.
//
// NOT FOUND VS FORBIDDEN:
// A resource owned by another user is reported exactly like a missing one
// (ErrNotFound, same message). This keeps tenants from probing for each
// other's ids. ErrForbidden is reserved for resources the caller can see but
// may not change, such as global categories.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrTransient    = errors.New("transient")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Unauthorized is returned for bad credentials and unusable refresh tokens.
// The message never says which part was wrong.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation, e.g. a duplicate category name.
func Conflict(resource, value string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists: %s", resource, value),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Transient wraps a storage failure that may succeed if retried (lock
// contention that outlived the retry budget). The cause stays reachable
// through errors.Unwrap on the returned chain.
func Transient(op string, cause error) error {
	return fmt.Errorf("%w: %w", &AppError{
		Err:     ErrTransient,
		Message: fmt.Sprintf("%s: storage temporarily unavailable, retry later", op),
	}, cause)
}
