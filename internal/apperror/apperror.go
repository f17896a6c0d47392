package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so callers can branch without string matching.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindInsufficientStock    Kind = "insufficient_stock"
	KindInvalidTransition    Kind = "invalid_transition"
	KindAlreadyInspected     Kind = "already_inspected"
	KindPendingInspection    Kind = "pending_inspection"
	KindDuplicateReturnClaim Kind = "duplicate_return_claim"
	KindExpiredReturnWindow  Kind = "expired_return_window"
	KindValidationFailure    Kind = "validation_failure"
	KindUnavailable          Kind = "unavailable"
)

// Error is a typed, recoverable domain failure. The message is user-visible.
type Error struct {
	Kind Kind
	Msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.err
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func InsufficientStock(format string, args ...interface{}) *Error {
	return newf(KindInsufficientStock, format, args...)
}

func InvalidTransition(format string, args ...interface{}) *Error {
	return newf(KindInvalidTransition, format, args...)
}

func AlreadyInspected(format string, args ...interface{}) *Error {
	return newf(KindAlreadyInspected, format, args...)
}

func PendingInspection(format string, args ...interface{}) *Error {
	return newf(KindPendingInspection, format, args...)
}

func DuplicateReturnClaim(format string, args ...interface{}) *Error {
	return newf(KindDuplicateReturnClaim, format, args...)
}

func ExpiredReturnWindow(format string, args ...interface{}) *Error {
	return newf(KindExpiredReturnWindow, format, args...)
}

func ValidationFailure(format string, args ...interface{}) *Error {
	return newf(KindValidationFailure, format, args...)
}

// Unavailable wraps a storage or infrastructure error. Callers retry, the core does not.
func Unavailable(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnavailable, Msg: fmt.Sprintf(format, args...), err: err}
}

// IsKind reports whether err is an *Error of the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or empty when err is not a domain error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
