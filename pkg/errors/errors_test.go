package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindUnknown, "unknown"},
		{KindInvalidInput, "invalid_input"},
		{KindNotFound, "not_found"},
		{KindConflict, "conflict"},
		{KindRateLimit, "rate_limit"},
		{KindTimeout, "timeout"},
		{KindCanceled, "canceled"},
		{KindUnavailable, "unavailable"},
		{KindInternal, "internal"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("Kind.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected int
	}{
		{KindInvalidInput, http.StatusUnprocessableEntity},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindRateLimit, http.StatusTooManyRequests},
		{KindTimeout, http.StatusGatewayTimeout},
		{KindUnavailable, http.StatusServiceUnavailable},
		{KindUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.HTTPStatus(); got != tt.expected {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "op and message and err",
			err:      &Error{Op: "users.Delete", Message: "delete failed", Err: fmt.Errorf("locked")},
			expected: "users.Delete: delete failed: locked",
		},
		{
			name:     "op and message",
			err:      &Error{Op: "users.Delete", Message: "delete failed"},
			expected: "users.Delete: delete failed",
		},
		{
			name:     "message and err",
			err:      &Error{Message: "delete failed", Err: fmt.Errorf("locked")},
			expected: "delete failed: locked",
		},
		{
			name:     "message only",
			err:      &Error{Message: "delete failed"},
			expected: "delete failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestE(t *testing.T) {
	cause := errors.New("boom")
	err := E(KindConflict, "settings.Update", "stale write", cause)

	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("E() did not return *Error")
	}
	if e.Kind != KindConflict || e.Op != "settings.Update" || e.Message != "stale write" || e.Err != cause {
		t.Errorf("E() = %+v", e)
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound("assets.GetByID", "Asset", "42")

	if !IsNotFoundError(err) {
		t.Error("IsNotFoundError() = false, want true")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = false, want true")
	}
	if got := err.Error(); got != "assets.GetByID: Asset with id 42 not found" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrapKeepsKind(t *testing.T) {
	err := Wrap(NotFound("findings.UpdateStatus", "Finding", "f9"), "api.patchFinding")
	if GetKind(err) != KindNotFound {
		t.Errorf("GetKind() = %v, want not_found", GetKind(err))
	}
	if Wrap(nil, "op") != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestGetKindThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("outer: %w", E(KindInvalidInput, "users.Create", "bad"))
	if GetKind(err) != KindInvalidInput {
		t.Errorf("GetKind() = %v, want invalid_input", GetKind(err))
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Error("plain errors should be KindUnknown")
	}
}

func TestFromContext(t *testing.T) {
	if FromContext("op", nil) != nil {
		t.Error("FromContext(nil) should be nil")
	}
	if k := GetKind(FromContext("op", context.Canceled)); k != KindCanceled {
		t.Errorf("canceled kind = %v", k)
	}
	if k := GetKind(FromContext("op", context.DeadlineExceeded)); k != KindTimeout {
		t.Errorf("deadline kind = %v", k)
	}
}

func TestToAPIError(t *testing.T) {
	t.Run("portal error", func(t *testing.T) {
		apiErr := ToAPIError(NotFound("users.GetByID", "User", "u9"), "req-1")
		if apiErr.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d", apiErr.StatusCode)
		}
		if apiErr.Code != "not_found" {
			t.Errorf("Code = %q", apiErr.Code)
		}
		if apiErr.Message != "User with id u9 not found" {
			t.Errorf("Message = %q", apiErr.Message)
		}
		if apiErr.RequestID != "req-1" {
			t.Errorf("RequestID = %q", apiErr.RequestID)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		apiErr := ToAPIError(errors.New("disk on fire"), "")
		if apiErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("StatusCode = %d", apiErr.StatusCode)
		}
	})

	t.Run("api error passthrough", func(t *testing.T) {
		in := &APIError{StatusCode: http.StatusTeapot, Code: "teapot", Message: "short and stout"}
		if got := ToAPIError(in, "x"); got != in {
			t.Error("APIError should pass through unchanged")
		}
	})
}
