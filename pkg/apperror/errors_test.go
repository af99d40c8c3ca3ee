package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without field",
			err:      New(CodeInvalidInput, "sources must not be empty"),
			expected: "[INVALID_INPUT] sources must not be empty",
		},
		{
			name:     "with field",
			err:      NewWithField(CodeUnknownParameter, "unsupported value", "format"),
			expected: "[UNKNOWN_PARAMETER] unsupported value (field: format)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("slot budget")
	err := Wrap(cause, CodeResourceExhausted, "matrix too large")

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	wrapped := fmt.Errorf("compute: %w", err)
	if got := CodeOf(wrapped); got != CodeResourceExhausted {
		t.Errorf("CodeOf() = %v, want %v", got, CodeResourceExhausted)
	}
	if !Is(wrapped, CodeResourceExhausted) {
		t.Error("Is() should match through wrapping")
	}
	if Is(wrapped, CodeTimeout) {
		t.Error("Is() matched the wrong code")
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if got := CodeOf(errors.New("boom")); got != CodeInternal {
		t.Errorf("CodeOf() = %v, want %v", got, CodeInternal)
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeLimitExceeded, "too many locations").WithDetails("limit", 100)
	if err.Details["limit"] != 100 {
		t.Errorf("Details[limit] = %v, want 100", err.Details["limit"])
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeUnknownParameter, http.StatusBadRequest},
		{CodeLimitExceeded, http.StatusBadRequest},
		{CodePreprocessingMissing, http.StatusInternalServerError},
		{CodeResourceExhausted, http.StatusInsufficientStorage},
		{CodeServiceUnavailable, http.StatusServiceUnavailable},
		{CodeTimeout, http.StatusServiceUnavailable},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeInternal, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.code); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
