package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable machine-readable error category returned to callers.
type Kind string

const (
	Unauthorized    Kind = "UNAUTHORIZED"
	NotFound        Kind = "NOT_FOUND"
	InvalidArgument Kind = "INVALID_ARGUMENT"
	InvalidState    Kind = "INVALID_STATE"
	Conflict        Kind = "CONFLICT"
	Unavailable     Kind = "UNAVAILABLE"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain. Errors that did not come
// from this package are treated as storage/infrastructure failures.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Unavailable
}

// MessageOf returns the human message for an error chain.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Unauthorized:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case InvalidArgument:
		return http.StatusBadRequest
	case InvalidState:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
