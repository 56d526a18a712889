// Package apperr defines the error taxonomy shared by handlers and
// middleware. Handlers return *Error values and a single echo
// HTTPErrorHandler renders them, so status codes and response bodies are
// decided in one place.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP layer.
type Kind string

const (
	KindUnauthenticated  Kind = "UNAUTHENTICATED"
	KindForbidden        Kind = "FORBIDDEN"
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindValidationFailed Kind = "VALIDATION_FAILED"
	KindBadRequest       Kind = "BAD_REQUEST"
	KindInternal         Kind = "INTERNAL"
)

// Status maps a Kind to its HTTP status code. Conflicts are reported as 400
// to stay compatible with existing clients of the network API.
func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindValidationFailed, KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is an application error carrying a Kind, a client-safe message and
// optional extra response fields (e.g. connectedPipes).
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error with the same Kind, so callers can write
// errors.Is(err, apperr.NotFound("")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// With attaches an extra response field and returns e.
func (e *Error) With(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any, 1)
	}
	e.Fields[key] = value
	return e
}

func newErr(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Unauthenticated(msg string) *Error  { return newErr(KindUnauthenticated, msg) }
func Forbidden(msg string) *Error        { return newErr(KindForbidden, msg) }
func NotFound(msg string) *Error         { return newErr(KindNotFound, msg) }
func Conflict(msg string) *Error         { return newErr(KindConflict, msg) }
func ValidationFailed(msg string) *Error { return newErr(KindValidationFailed, msg) }
func BadRequest(msg string) *Error       { return newErr(KindBadRequest, msg) }

// Internal wraps an unexpected failure. The message is never shown to
// clients outside the dev environment.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Cause: cause}
}

// KindOf reports the Kind of err, defaulting to KindInternal for errors that
// are not *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
