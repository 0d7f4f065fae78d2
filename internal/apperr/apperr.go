// Package apperr defines the error kinds that cross package boundaries and
// the HTTP status each one maps to.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the HTTP boundary
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindRateLimited
	KindStore
	KindIO
)

// String returns a short lowercase label, used in logs and metrics
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindStore:
		return "store"
	case KindIO:
		return "io"
	default:
		return "internal"
	}
}

// Error is a classified error carrying a client-safe message. Details is
// optional diagnostic text that may be shown to the client; it must never
// contain credentials.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of e with client-visible details attached
func (e *Error) WithDetails(details string) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func RateLimited(message string) *Error {
	return &Error{Kind: KindRateLimited, Message: message}
}

func Store(message string, err error) *Error {
	return &Error{Kind: KindStore, Message: message, Err: err}
}

func IO(message string, err error) *Error {
	return &Error{Kind: KindIO, Message: message, Err: err}
}

// KindOf reports the kind of err, KindInternal for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps err to an HTTP status code
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe message and details for err. Unclassified
// errors get a generic message so driver or filesystem text never leaks.
func Message(err error) (string, string) {
	var e *Error
	if errors.As(err, &e) {
		return e.Message, e.Details
	}
	return "Internal server error", ""
}
