// Package xerr implements the error taxonomy shared by the vault, secrets
// client, executor, and snapshot manager: a small closed set of kinds that
// maps deterministically to an RPC status and an audit severity at every
// service boundary.
package xerr

import (
	"errors"
	"fmt"
)

// Kind is the closed taxonomy every component reduces its errors to at a
// service boundary.
type Kind int

const (
	Internal Kind = iota
	InvalidArgument
	Unauthenticated
	PermissionDenied
	NotFound
	FailedPrecondition
	ResourceExhausted
	DeadlineExceeded
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case Unauthenticated:
		return "unauthenticated"
	case PermissionDenied:
		return "permission_denied"
	case NotFound:
		return "not_found"
	case FailedPrecondition:
		return "failed_precondition"
	case ResourceExhausted:
		return "resource_exhausted"
	case DeadlineExceeded:
		return "deadline_exceeded"
	case Unavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Severity is the audit severity a Kind carries when it is logged.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityCritical
	SeverityEmergency
)

func (k Kind) Severity() Severity {
	switch k {
	case PermissionDenied:
		return SeverityCritical
	case ResourceExhausted:
		return SeverityEmergency
	case NotFound, InvalidArgument:
		return SeverityWarn
	case Unauthenticated:
		return SeverityWarn
	default:
		return SeverityInfo
	}
}

// Error is a kinded, wrappable error. Components construct one at the point
// a failure is known and let it propagate with full detail; the boundary
// layer (transport) reduces it to Kind + sanitized text.
type Error struct {
	Kind   Kind
	Msg    string
	Detail string // distinguishing tag, e.g. "timeout", "memory", "process_count"
	cause  error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Msg, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, cause: cause}
}

// WithDetail attaches a distinguishing tag (e.g. the executor's
// timeout/memory/process_count breach discriminator) and returns the
// receiver for chaining.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// KindOf unwraps err looking for an *Error and returns its Kind, defaulting
// to Internal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// DetailOf returns the distinguishing tag on err, if any.
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return ""
}

// Retryable reports whether the Secrets Client may automatically retry an
// operation that failed with err. Per the error-handling design, only
// Unavailable and DeadlineExceeded are retried, and only by the Secrets
// Client.
func Retryable(err error) bool {
	switch KindOf(err) {
	case Unavailable, DeadlineExceeded:
		return true
	default:
		return false
	}
}
