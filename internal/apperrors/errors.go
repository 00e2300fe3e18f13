// Package apperrors carries the error kinds the API surfaces to
// clients. Client behaviour branches on kind (retry vs toast vs
// redirect), so kinds must survive from the service layer to the
// handler instead of collapsing into generic failures.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindBadRequest        Kind = "bad_request"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindExpired           Kind = "expired"
	KindConflict          Kind = "conflict"
	KindInvalidTransition Kind = "invalid_transition"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) *Error {
	return newError(KindBadRequest, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Expired(format string, args ...any) *Error {
	return newError(KindExpired, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func InvalidTransition(format string, args ...any) *Error {
	return newError(KindInvalidTransition, format, args...)
}

// KindOf extracts the kind from an error chain, or "" for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is lets errors.Is match two apperrors by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}
