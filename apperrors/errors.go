package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// FieldError describes one failed input rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Error is the error value returned by repositories and services.
type Error struct {
	Kind    Kind
	Message string
	Details []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return newError(KindValidation, format, args...)
}

// Invalid reports rule violations on individual input fields.
func Invalid(details []FieldError) error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Details: details}
}

func Authentication(format string, args ...any) error {
	return newError(KindAuthentication, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newError(KindForbidden, format, args...)
}

func NotFound(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

// Internal wraps an unexpected error with a short description of what failed.
func Internal(err error, format string, args ...any) error {
	e := newError(KindInternal, format, args...)
	e.Err = err
	return e
}

// KindOf reports the Kind of err, KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the client-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// DetailsOf returns the field errors carried by err, if any.
func DetailsOf(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

func IsValidation(err error) bool     { return err != nil && KindOf(err) == KindValidation }
func IsAuthentication(err error) bool { return err != nil && KindOf(err) == KindAuthentication }
func IsForbidden(err error) bool      { return err != nil && KindOf(err) == KindForbidden }
func IsNotFound(err error) bool       { return err != nil && KindOf(err) == KindNotFound }
func IsConflict(err error) bool       { return err != nil && KindOf(err) == KindConflict }

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
