// Package common defines shared constants and error kinds used across the
// client and server layers of gophauth. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level kinds. Each one maps to a single HTTP status.
	ErrBadRequest      = errors.New("bad request")
	ErrConflict        = errors.New("conflict")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrorInternal      = errors.New("internal error")

	// ErrMisconfigured is an internal error caused by missing process configuration.
	ErrMisconfigured = fmt.Errorf("%w: misconfigured", ErrorInternal)

	// Token verification errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Error is a classified failure with a message that is safe to show to clients.
type Error struct {
	Kind    error
	Message string
	// Errors holds optional per-field details.
	Errors []string
	cause   error
}

// NewError builds an Error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError builds an Error of the given kind that keeps cause for logging.
func WrapError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

func BadRequest(message string) *Error   { return NewError(ErrBadRequest, message) }
func Conflict(message string) *Error     { return NewError(ErrConflict, message) }
func Unauthorized(message string) *Error { return NewError(ErrorUnauthorized, message) }
func NotFound(message string) *Error     { return NewError(ErrorNotFound, message) }

// Internal wraps cause as an internal error with a client-facing message.
func Internal(message string, cause error) *Error {
	return WrapError(ErrorInternal, message, cause)
}
