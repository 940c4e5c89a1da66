// Package whisperr defines the error taxonomy used across the server
// core. Every code maps 1:1 to a wire.Code* constant; business logic
// constructs a *Error and the server's dispatcher translates it to an
// `error` frame at the connection boundary.
package whisperr

import (
	"errors"
	"fmt"
)

// Error is a taxonomy-tagged error that is safe to surface to a client.
type Error struct {
	Code       string
	Message    string
	RetryAfter int // seconds, only meaningful for CodeRateLimited
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a client-facing error with no wrapped cause.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a client-facing error around an internal cause. The cause
// is logged by the caller but never included in the wire message.
func Wrap(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// RateLimited builds the one error code that carries extra structured data.
func RateLimited(retryAfter int) *Error {
	return &Error{Code: "RATE_LIMITED", Message: "rate limit exceeded", RetryAfter: retryAfter}
}

// As reports whether err (or something it wraps) is a *Error, mirroring
// the standard errors.As convention used throughout the store packages.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Internal is a convenience constructor for store/adapter failures that
// must never leak internal detail to the client.
func Internal(message string, cause error) *Error {
	return Wrap("INTERNAL_ERROR", message, cause)
}
