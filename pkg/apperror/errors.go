// Package apperror carries structured errors from the matrix service to the
// HTTP boundary: a stable code, a message, the offending field and an
// optional cause.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of request failure.
type ErrorCode string

const (
	CodeInvalidInput         ErrorCode = "INVALID_INPUT"
	CodeUnknownParameter     ErrorCode = "UNKNOWN_PARAMETER"
	CodeLimitExceeded        ErrorCode = "LIMIT_EXCEEDED"
	CodePreprocessingMissing ErrorCode = "PREPROCESSING_MISSING"
	CodeResourceExhausted    ErrorCode = "RESOURCE_EXHAUSTED"
	CodeServiceUnavailable   ErrorCode = "SERVICE_UNAVAILABLE"
	CodeTimeout              ErrorCode = "TIMEOUT"
	CodeRateLimited          ErrorCode = "RATE_LIMITED"
	CodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// Error is an application error with a code, message, optional field,
// details and an underlying cause.
type Error struct {
	Code    ErrorCode      // Code is the stable identifier returned to clients.
	Message string         // Message is a human-readable description.
	Field   string         // Field names the request field at fault, if any.
	Details map[string]any // Details carries extra structured context.
	Cause   error          // Cause is the wrapped error, if any.
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Details: make(map[string]any)}
}

// NewWithField creates an error attributed to a request field.
func NewWithField(code ErrorCode, message, field string) *Error {
	return &Error{Code: code, Message: message, Field: field, Details: make(map[string]any)}
}

// Wrap creates an error with the given code that wraps cause.
func Wrap(cause error, code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause, Details: make(map[string]any)}
}

// WithDetails adds a key-value pair to the details and returns e.
func (e *Error) WithDetails(key string, value any) *Error {
	e.Details[key] = value
	return e
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf extracts the code from err, or CodeInternal if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to the response status.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case CodeInvalidInput, CodeUnknownParameter, CodeLimitExceeded:
		return http.StatusBadRequest
	case CodeResourceExhausted:
		return http.StatusInsufficientStorage
	case CodeServiceUnavailable, CodeTimeout:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
