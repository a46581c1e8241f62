// Package apperror carries the small error taxonomy the HTTP layer maps to
// status codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap attaches an underlying cause that is logged but never shown to clients.
func (e *Error) Wrap(err error) *Error {
	return &Error{Status: e.Status, Message: e.Message, Err: err}
}

func newError(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Status: status, Message: message}
}

func BadRequest(message string) *Error {
	return newError(http.StatusBadRequest, message)
}

func Unauthorized(message string) *Error {
	return newError(http.StatusUnauthorized, message)
}

func Forbidden(message string) *Error {
	return newError(http.StatusForbidden, message)
}

func NotFound(message string) *Error {
	return newError(http.StatusNotFound, message)
}

func Conflict(message string) *Error {
	return newError(http.StatusConflict, message)
}

func TooManyRequests(message string) *Error {
	return newError(http.StatusTooManyRequests, message)
}

func Internal(message string) *Error {
	return newError(http.StatusInternalServerError, message)
}

// From maps any error onto the taxonomy. Anything untyped is a 500.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("").Wrap(err)
}

// StatusOf is a shorthand for From(err).Status.
func StatusOf(err error) int {
	return From(err).Status
}
