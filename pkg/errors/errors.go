// Package errors defines the application error taxonomy shared by services and
// the HTTP boundary.
package errors

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Code is a stable error class for programmatic handling.
type Code string

const (
	CodeUnauthorized     Code = "unauthorized"
	CodeForbidden        Code = "forbidden"
	CodeNotFound         Code = "not_found"
	CodeConflict         Code = "conflict"
	CodeCapacityExceeded Code = "capacity_exceeded"
	CodeValidation       Code = "validation"
	CodeTooManyRequests  Code = "too_many_requests"
	CodeUnavailable      Code = "unavailable"
	CodeInternal         Code = "internal"
)

// AppError carries a code, a specific reason, a message and optional per-field details.
type AppError struct {
	Code    Code
	Reason  string
	Message string
	Fields  map[string]string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *AppError) Unwrap() error { return e.Err }

// Is matches on code and reason so sentinel AppErrors compare equal after wrapping.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Reason == t.Reason
}

// New creates a new AppError with code and message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NewReason creates an AppError with a specific reason.
func NewReason(code Code, reason, message string) *AppError {
	return &AppError{Code: code, Reason: reason, Message: message}
}

// Wrap wraps an existing error with code and message.
func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return New(code, message)
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// Internal wraps an unexpected failure.
func Internal(err error, message string) *AppError {
	return Wrap(err, CodeInternal, message)
}

// Validation builds a validation error from field -> message pairs.
func Validation(fields map[string]string) *AppError {
	return &AppError{Code: CodeValidation, Message: "validation failed", Fields: fields}
}

// FromValidation converts an ozzo-validation result into a field-by-field AppError.
// Non-validation errors are returned as internal errors.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for k, v := range verrs {
			if v != nil {
				fields[k] = v.Error()
			}
		}
		return Validation(fields)
	}
	var ie validation.InternalError
	if errors.As(err, &ie) {
		return Internal(err, "validation failed")
	}
	return &AppError{Code: CodeValidation, Message: err.Error()}
}

// IsCode checks if an error has the provided code (through unwrapping).
func IsCode(err error, code Code) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// As returns the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
