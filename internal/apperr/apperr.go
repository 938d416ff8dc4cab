// Package apperr defines the error taxonomy shared by all request
// handlers. Every service error is one of these kinds; the HTTP layer
// maps kinds to status codes and never inspects error strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	// KindValidation covers malformed identifiers, missing required
	// fields and unsupported formats.
	KindValidation Kind = iota
	// KindNotFound covers absent videos, jobs and variants.
	KindNotFound
	// KindUnauthorized covers ownership mismatches on mutation.
	KindUnauthorized
	// KindConflict covers "encoding never initiated", distinct from
	// "not yet ready".
	KindConflict
	// KindUpstream covers object-storage and other collaborator
	// failures.
	KindUpstream
)

// Error is a classified application error.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the error classification.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the client-facing message without wrapped detail.
func (e *Error) Message() string { return e.msg }

// Validation creates a validation error.
func Validation(format string, args ...interface{}) *Error {
	return &Error{kind: KindValidation, msg: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{kind: KindNotFound, msg: fmt.Sprintf(format, args...)}
}

// Unauthorized creates an ownership/permission error.
func Unauthorized(format string, args ...interface{}) *Error {
	return &Error{kind: KindUnauthorized, msg: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{kind: KindConflict, msg: fmt.Sprintf(format, args...)}
}

// Upstream wraps a collaborator failure.
func Upstream(err error, format string, args ...interface{}) *Error {
	return &Error{kind: KindUpstream, msg: fmt.Sprintf(format, args...), err: err}
}

// HTTPStatus maps an error to its response status code. Unclassified
// errors map to 500.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// ClientMessage returns the message safe to send to clients.
func ClientMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return "internal server error"
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.kind == kind
}
