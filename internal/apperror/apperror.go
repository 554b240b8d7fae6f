// Package apperror defines the domain error taxonomy shared by every layer.
//
// Services return these errors; only the HTTP layer (handler/response.go)
// knows which status code each sentinel maps to.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrReconnect means GitHub rejected the stored access token. Callers
	// should prompt the user to re-link their account, not show a failure.
	ErrReconnect = errors.New("github reconnect required")

	// ErrNotConnected means the account has no GitHub credential at all.
	ErrNotConnected = errors.New("github not connected")
)

type AppError struct {
	Err     error  // sentinel from the list above
	Message string // client-safe message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
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

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
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

// Unauthorized is returned when the session is missing, invalid, or points
// at an account that no longer exists.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// ReconnectRequired wraps an upstream 401 from GitHub.
func ReconnectRequired(cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrReconnect, cause),
		Message: "GitHub token expired. Please reconnect.",
	}
}

// NotConnected is returned by GitHub-backed operations for accounts that
// never linked GitHub (or unlinked it).
func NotConnected() *AppError {
	return &AppError{
		Err:     ErrNotConnected,
		Message: "GitHub account not connected. Please connect your GitHub account first.",
	}
}
