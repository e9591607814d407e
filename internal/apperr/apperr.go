// Package apperr provides the typed errors surfaced at the jobportal boundary.
// Core packages return these for the few conditions callers must tell apart;
// the HTTP layer maps them onto status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of an error.
type Kind int

const (
	// KindUnknown is reported for errors that are not *Error.
	KindUnknown Kind = iota
	// KindValidation marks a missing required field, a password mismatch or an
	// unsupported attachment type.
	KindValidation
	// KindAuth marks a credential mismatch or a missing session.
	KindAuth
	// KindNotFound marks a lookup of a single record that does not exist.
	KindNotFound
	// KindMalformed marks filter criteria that cannot be evaluated.
	KindMalformed
	// KindConflict marks a request that clashes with in-flight state.
	KindConflict
	// KindInternal marks an unexpected failure.
	KindInternal
)

// String returns the name used in API payloads and form failure callbacks.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindAuth:
		return "AuthError"
	case KindNotFound:
		return "NotFoundError"
	case KindMalformed:
		return "MalformedCriteria"
	case KindConflict:
		return "ConflictError"
	case KindInternal:
		return "InternalError"
	default:
		return "UnknownError"
	}
}

// Error is a domain error with a Kind.
type Error struct {
	Kind    Kind
	Message string
	Op      string // operation that failed (optional)
	Field   string // offending field for validation errors (optional)
	Err     error  // underlying error (optional)
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindMalformed:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WithOp sets the operation and returns e.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithField sets the offending field and returns e.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }
func Auth(message string) *Error       { return New(KindAuth, message) }
func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Malformed(message string) *Error  { return New(KindMalformed, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }
func Internal(message string) *Error   { return New(KindInternal, message) }

// KindOf extracts the Kind from anywhere in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
