// Package apperr defines the business error taxonomy shared by services,
// repositories and handlers. Every user-visible failure is one of the codes
// below; handlers map codes to HTTP statuses without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies a business failure.
type Code string

const (
	CodeNotFound          Code = "not_found"
	CodeForbidden         Code = "forbidden"
	CodeInvalidInput      Code = "invalid_input"
	CodeConflict          Code = "conflict"
	CodeInvalidTransition Code = "invalid_transition"
	// CodeUnavailable marks storage/transport outages. These are retryable by
	// the caller's transport layer and must never be reported as Conflict.
	CodeUnavailable Code = "unavailable"
)

// Error carries a code, a human-readable detail and structured metadata
// (deal id, version, document type, required role) so clients can render an
// actionable message.
type Error struct {
	Code   Code           `json:"code"`
	Detail string         `json:"detail"`
	Meta   map[string]any `json:"meta,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// WithMeta attaches one structured detail field and returns the error for chaining.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any, 2)
	}
	e.Meta[key] = value
	return e
}

// Wrap records the underlying cause without changing the visible code/detail.
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

func newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error     { return newf(CodeNotFound, format, args...) }
func Forbidden(format string, args ...any) *Error    { return newf(CodeForbidden, format, args...) }
func InvalidInput(format string, args ...any) *Error { return newf(CodeInvalidInput, format, args...) }
func Conflict(format string, args ...any) *Error     { return newf(CodeConflict, format, args...) }
func InvalidTransition(format string, args ...any) *Error {
	return newf(CodeInvalidTransition, format, args...)
}
func Unavailable(format string, args ...any) *Error { return newf(CodeUnavailable, format, args...) }

// CodeOf extracts the taxonomy code from err, or empty when err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool { return CodeOf(err) == code }
