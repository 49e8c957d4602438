// Package execerr defines the taxonomy of errors a job execution can fail
// with, so the agent can report a stable, typed reason to the dispatcher
// instead of a raw error string.
package execerr

import (
	"errors"
	"fmt"
)

// Kind identifies the category of failure that ended a job.
type Kind string

const (
	UnsupportedLanguage Kind = "UnsupportedLanguage"
	WorkspaceError      Kind = "WorkspaceError"
	CompileError        Kind = "CompileError"
	ExecutionTimeout    Kind = "ExecutionTimeout"
	ContainerExit       Kind = "ContainerExit"
	NoResult            Kind = "NoResult"
	SandboxError        Kind = "SandboxError"
)

// Error wraps an underlying cause with the kind the dispatcher expects.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an Error of the given kind with a message, no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind carrying the original cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
