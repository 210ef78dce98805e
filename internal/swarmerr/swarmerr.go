// Package swarmerr defines the error kinds shared across swarm's packages
// (spec.md §7) so command handlers can map any returned error to a CLI
// exit code without string matching.
package swarmerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation/exit-code purposes.
type Kind int

const (
	// NotFound: named worker/workflow absent.
	NotFound Kind = iota
	// Duplicate: name collision on create.
	Duplicate
	// InvalidInput: malformed argv, mutually exclusive flags, schema violations.
	InvalidInput
	// BackendFailure: multiplexer or OS rejected an operation.
	BackendFailure
	// TransientIO: capture/poll I/O error.
	TransientIO
	// CorruptState: unparseable persisted JSON.
	CorruptState
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Duplicate:
		return "duplicate"
	case InvalidInput:
		return "invalid_input"
	case BackendFailure:
		return "backend_failure"
	case TransientIO:
		return "transient_io"
	case CorruptState:
		return "corrupt_state"
	default:
		return "unknown"
	}
}

// ExitCode returns the CLI exit code conventionally associated with a kind.
// Most kinds surface as exit 1; NotFound surfaces as 2 to match spec.md §6's
// status/ls exit-code convention (0 running, 1 stopped, 2 not-found).
func (k Kind) ExitCode() int {
	if k == NotFound {
		return 2
	}
	return 1
}

// Error wraps an underlying cause with a Kind and an optional field
// reference (used by InvalidInput errors to name the offending field).
type Error struct {
	Kind  Kind
	Field string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Kind, e.Msg, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a kind-tagged error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf constructs a kind-tagged error with formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Field constructs an InvalidInput error naming the offending field.
func Field(field, msg string) *Error {
	return &Error{Kind: InvalidInput, Field: field, Msg: msg}
}

// Wrap tags an existing error with a kind, preserving it as the cause.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// As extracts a *Error from err, if present.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, defaulting to InvalidInput when err is
// not a *Error (an unclassified error is treated as surfaced, non-recovered).
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return InvalidInput
}

// ExitCode returns the exit code that should accompany err on the CLI
// surface, per spec.md §7's propagation policy.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return KindOf(err).ExitCode()
}
