package core

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes dispatch failures so callers can branch on the class
// of fault instead of string matching. The endpoint state machine only maps
// KindValidation and KindEngine to a failed task; every other kind is folded
// into a completed response carrying the error text.
type ErrorKind string

const (
	// KindValidation marks a malformed inbound task. Never retried.
	KindValidation ErrorKind = "validation"
	// KindNetwork marks a discovery or task-send timeout / connection failure.
	KindNetwork ErrorKind = "network"
	// KindParse marks a malformed payload (discovery document, task response).
	KindParse ErrorKind = "parse"
	// KindCapabilityNotFound marks a directive naming an unregistered capability.
	KindCapabilityNotFound ErrorKind = "capability_not_found"
	// KindEngine marks a reasoning engine fault. Fatal for the request.
	KindEngine ErrorKind = "engine"
	// KindStore marks a conversation store fault. Recovered by fallback.
	KindStore ErrorKind = "store"
)

// Error is a typed dispatch error carrying a kind plus human readable detail.
// It propagates structurally through the pipeline; components convert it to
// text only at their own protocol boundary.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Cause }

// NewError constructs a typed Error without a cause.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError constructs a typed Error wrapping an underlying cause.
func WrapError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the ErrorKind from err, unwrapping as needed. Errors that
// never passed through the taxonomy report KindEngine when they surface from
// the reasoning step and are otherwise treated as opaque.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}
