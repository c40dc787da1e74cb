package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound        Code = "not_found"
	CodeBadRequest      Code = "bad_request"
	CodeValidation      Code = "validation_failed"
	CodeInternal        Code = "internal_error"
	CodeConflict        Code = "conflict"
	CodeUnauthorized    Code = "unauthorized"
	CodeForbidden       Code = "forbidden"
	CodeMissingConsent  Code = "missing_consent"
	CodeTimeout         Code = "timeout"
	CodeTooManyRequests Code = "too_many_requests"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
//
// Reason narrows the code to a specific rejection (e.g. "outside_fence") and
// Details carries structured fields a client needs to render a precise message.
type Error struct {
	Code    Code
	Reason  string
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Reason != "" {
		return e.Reason
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code, and by reason when the
// target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Reason != "" && e.Reason != t.Reason {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// NewWithReason creates a domain error carrying a specific reason and optional details.
func NewWithReason(code Code, reason, msg string, details map[string]any) error {
	return &Error{Code: code, Reason: reason, Message: msg, Details: details}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code and reason are preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Reason: existing.Reason, Message: msg, Details: existing.Details, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// WrapWithReason wraps an infrastructure error under a specific reason.
// Unlike Wrap, the given code and reason always win.
func WrapWithReason(err error, code Code, reason, msg string) error {
	return &Error{Code: code, Reason: reason, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// HasReason checks if an error is a domain error with the given reason.
func HasReason(err error, reason string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason == reason
	}
	return false
}

// ReasonOf returns the reason of a domain error, falling back to its code.
// Non-domain errors report CodeInternal.
func ReasonOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return string(CodeInternal)
	}
	if e.Reason != "" {
		return e.Reason
	}
	return string(e.Code)
}
