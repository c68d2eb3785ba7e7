// Package errors provides structured error types for hydrostat.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// The solver distinguishes recoverable trial failures (an EOS lookup outside
// its table domain marks one trial infeasible) from terminal outcomes
// (non-convergence, discontinuous assembly, physically inconsistent
// constraints). The codes below carry that distinction across package
// boundaries.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConstraints, "target mass %g kg unreachable", m)
//	if errors.Is(err, errors.ErrCodeInvalidConstraints) {
//	    // reject before integrating
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeEOSOutOfRange, cause, "lookup at %g MPa", p)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidConstraints Code = "INVALID_CONSTRAINTS"
	ErrCodeInvalidLayer       Code = "INVALID_LAYER"
	ErrCodeInvalidConfig      Code = "INVALID_CONFIG"

	// Trial-level failures (recoverable by the solver)
	ErrCodeEOSOutOfRange Code = "EOS_OUT_OF_RANGE"
	ErrCodeStepTooSmall  Code = "STEP_TOO_SMALL"
	ErrCodeInfeasible    Code = "TRIAL_INFEASIBLE"

	// Terminal run outcomes
	ErrCodeNonConvergence Code = "NON_CONVERGENCE"
	ErrCodeDiscontinuity  Code = "DISCONTINUITY"

	// Resource and infrastructure errors
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeCache    Code = "CACHE_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err carries the given error code anywhere in its chain.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsTrialFailure reports whether err marks a single trial as infeasible
// rather than the whole run as failed: an EOS lookup left its table domain,
// step refinement collapsed, or the proposed parameters describe an
// impossible configuration (e.g. a shell bottom temperature off the melting
// curve). The solver skips such trials and keeps searching.
func IsTrialFailure(err error) bool {
	return Is(err, ErrCodeEOSOutOfRange) || Is(err, ErrCodeStepTooSmall) || Is(err, ErrCodeInfeasible)
}
