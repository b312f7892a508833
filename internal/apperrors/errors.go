// Package apperrors defines the error taxonomy shared across the discovery
// orchestrator: adapters, stages, and the engine all classify failures into
// one of a small set of kinds instead of inventing ad-hoc sentinel errors.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure so callers can tell adapter faults, bad input,
// internal faults and cancellation apart. The engine logs every stage error
// alike and carries on with empty defaults; nothing retries on any kind.
type Kind string

const (
	// KindTransient marks a retryable adapter failure: network errors,
	// provider 5xx responses, timeouts.
	KindTransient Kind = "transient_external"
	// KindInvalidInput marks a malformed request body or state key.
	KindInvalidInput Kind = "invalid_input"
	// KindInternal marks a programmer error or assertion violation.
	KindInternal Kind = "internal"
	// KindCancelled marks a context cancellation (client disconnect or
	// session timeout).
	KindCancelled Kind = "cancelled"
)

// Error is the concrete error type carried through stages and adapters.
// It never implies a Go type name to callers beyond this package; code
// that needs to branch on kind calls KindOf.
type Error struct {
	Kind    Kind
	Message string
	Stage   string // optional: the stage that produced this error
	Err     error  // optional: wrapped cause
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around an existing cause.
func Wrap(kind Kind, stage string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: err.Error(), Stage: stage, Err: err}
}

// KindOf extracts the Kind of err, defaulting to KindInternal for errors
// that were not produced by this package (e.g. a panic recovered into an
// error, or a library error never classified by its adapter).
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsTransient reports whether err should be treated as retryable.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }

// IsCancelled reports whether err represents a cancellation.
func IsCancelled(err error) bool { return KindOf(err) == KindCancelled }
