// Package domainerrors defines the coded error taxonomy surfaced by services.
//
// Stores return sentinel errors (see pkg/platform/sentinel); services translate
// them into coded errors so transports can map codes to responses without
// inspecting messages.
package domainerrors

import (
	"errors"
)

// Code classifies an error for callers and transports.
type Code string

const (
	CodeBadRequest            Code = "bad_request"
	CodeValidation            Code = "validation_error"
	CodeInvalidRequest        Code = "invalid_request"
	CodeNotFound              Code = "not_found"
	CodeDuplicateJurisdiction Code = "duplicate_jurisdiction"
	CodeUnknownJurisdiction   Code = "unknown_jurisdiction"
	CodeConflict              Code = "conflict"
	CodeForbidden             Code = "forbidden"
	CodeInvariantViolation    Code = "invariant_violation"
	CodeStoreUnavailable      Code = "store_unavailable"
	CodeUnavailable           Code = "unavailable"
	CodeTimeout               Code = "timeout"
	CodeInternal              Code = "internal_error"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
// Wrapping nil returns nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// From returns the outermost coded error in the chain.
func From(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost coded error, or CodeInternal.
func CodeOf(err error) Code {
	if de, ok := From(err); ok {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost coded error in the chain has code.
func HasCode(err error, code Code) bool {
	de, ok := From(err)
	return ok && de.Code == code
}

// Is is errors.Is re-exported so callers importing only this package can match sentinels.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsRetryable reports whether a caller may retry the operation with backoff.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeStoreUnavailable, CodeUnavailable, CodeTimeout, CodeConflict:
		return true
	default:
		return false
	}
}
