package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeResolution covers failures to resolve a target set
	// before any device was contacted.
	ErrorTypeResolution ErrorType = "Resolution"
	// ErrorTypeNotFound covers lookups of named artifacts (templates,
	// snapshots, devices) that do not exist.
	ErrorTypeNotFound ErrorType = "NotFound"
	// ErrorTypeTransport covers SSH/session failures against a device.
	ErrorTypeTransport ErrorType = "Transport"
	// ErrorTypeRender covers template parse and substitution failures.
	ErrorTypeRender ErrorType = "Render"
	// ErrorTypeValidation covers config and input validation failures.
	ErrorTypeValidation ErrorType = "Validation"
	// ErrorTypePersistence covers store read/write failures.
	ErrorTypePersistence ErrorType = "Persistence"
	// ErrorTypeAuth covers credential and token failures.
	ErrorTypeAuth ErrorType = "Authentication"
)

// Error is a categorized error. The category drives CLI exit codes and
// API status mapping; the wrapped cause keeps errors.Is/As working
// through the chain.
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

// Unwrap exposes the cause for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a categorized error with a message
func New(errType ErrorType, op, message string) *Error {
	return &Error{Type: errType, Op: op, Message: message}
}

// Wrap creates a categorized error around a cause
func Wrap(errType ErrorType, op string, err error) *Error {
	return &Error{Type: errType, Op: op, Err: err}
}

// WithCause attaches a cause to an existing error
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// Sentinel errors returned by the orchestrator before any device work
// starts. Callers branch on these with errors.Is; additional context is
// attached by wrapping (fmt.Errorf with %w).
var (
	ErrNoTargets      = New(ErrorTypeResolution, "resolve", "no valid target devices resolved")
	ErrConfigNotFound = New(ErrorTypeNotFound, "rollback", "configuration snapshot not found")
	ErrDeviceNotFound = New(ErrorTypeNotFound, "inventory", "device not found")
)

// TypeOf returns the category of err, or empty when err carries none
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// ExitCode maps an error category to a sysexits-style process exit code
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch TypeOf(err) {
	case ErrorTypeResolution:
		return 64 // EX_USAGE
	case ErrorTypeValidation, ErrorTypeRender:
		return 65 // EX_DATAERR
	case ErrorTypeNotFound:
		return 66 // EX_NOINPUT
	case ErrorTypeTransport:
		return 69 // EX_UNAVAILABLE
	case ErrorTypePersistence:
		return 74 // EX_IOERR
	case ErrorTypeAuth:
		return 77 // EX_NOPERM
	default:
		return 1
	}
}
