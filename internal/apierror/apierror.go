// Package apierror defines the error type every request stage returns when it
// wants the caller to receive a failure envelope.
package apierror

import (
	"errors"
	"fmt"

	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/status"
)

// DefaultMessage is reported when no better description is available.
const DefaultMessage = "Something went wrong"

// Error carries the status, message and client facing error list of a failed
// request. Cause is kept for logging only and is never serialized.
type Error struct {
	StatusCode int
	Message    string
	Errors     []string
	Cause      error
}

// New constructs an Error. A zero status defaults to 500 and an empty message
// to DefaultMessage.
func New(statusCode int, message string, errs ...string) *Error {
	if statusCode == 0 {
		statusCode = status.InternalServerError
	}
	if message == "" {
		message = DefaultMessage
	}
	return &Error{StatusCode: statusCode, Message: message, Errors: errs}
}

// Wrap attaches cause to a new Error.
func Wrap(cause error, statusCode int, message string) *Error {
	e := New(statusCode, message)
	e.Cause = cause
	return e
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%d %s: %v", e.StatusCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorList returns a non-nil copy of the client facing error strings.
func (e *Error) ErrorList() []string {
	if len(e.Errors) == 0 {
		return []string{}
	}
	return append([]string(nil), e.Errors...)
}

// BadRequest is shorthand for a 400 error.
func BadRequest(message string, errs ...string) *Error {
	return New(status.BadRequest, message, errs...)
}

// Unauthorized is shorthand for a 401 error.
func Unauthorized(message string) *Error {
	return New(status.Unauthorized, message)
}

// NotFound is shorthand for a 404 error.
func NotFound(message string) *Error {
	return New(status.NotFound, message)
}

// Conflict is shorthand for a 409 error.
func Conflict(message string) *Error {
	return New(status.Conflict, message)
}

// Internal wraps cause as a 500 error.
func Internal(cause error, message string) *Error {
	return Wrap(cause, status.InternalServerError, message)
}

// From converts any error into an *Error. Typed errors pass through
// unchanged, repository sentinels keep their meaning and everything else is
// reported as an internal error with the default message.
func From(err error) *Error {
	return FromStore(err, "")
}

// FromStore is like From but uses message for errors that do not already
// carry one.
func FromStore(err error, message string) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return Wrap(err, status.NotFound, orDefault(message, "Resource not found"))
	case errors.Is(err, repositories.ErrConflict):
		return Wrap(err, status.Conflict, orDefault(message, "Resource already exists"))
	}

	return Wrap(err, status.InternalServerError, message)
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
