// Package domainerrors provides coded errors for domain and service layers.
//
// Stores return pkg/platform/sentinel errors for infrastructure facts; services
// translate those into coded domain errors so callers (and the excluded API
// layer) can branch on Code without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for programmatic handling.
type Code string

const (
	// CodeInvalidInput marks malformed input at a trust boundary (empty id,
	// unknown enum value).
	CodeInvalidInput Code = "invalid_input"
	// CodeValidation marks input that parses but violates a business rule
	// (deadline in the past, non-positive amount, bid above budget cap).
	CodeValidation Code = "validation"
	// CodeInvariantViolation marks a broken model invariant detected at
	// construction time.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeNotFound marks an absent entity.
	CodeNotFound Code = "not_found"
	// CodeUnauthorized marks a failed role or ownership check.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an actor that exists but is not allowed to act
	// (deactivated actor, wrong role).
	CodeForbidden Code = "forbidden"
	// CodeConflict marks a duplicate (actor re-registration, duplicate bid) or
	// a lost race.
	CodeConflict Code = "conflict"
	// CodeInvalidState marks an operation that is not valid for the entity's
	// current lifecycle state (closing a cancelled tender, double close).
	CodeInvalidState Code = "invalid_state"
	// CodeInternal marks an unexpected infrastructure failure.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. Construct via New or Wrap.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause remains
// reachable through errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
