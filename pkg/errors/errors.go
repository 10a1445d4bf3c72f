// Package errors provides the error types shared by the portal sections,
// the shell and the HTTP layer.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// Base Error Types
// =============================================================================

// Error is the base error type for all portal errors.
type Error struct {
	// Kind indicates the category of error
	Kind Kind

	// Op is the operation being performed (e.g., "users.Delete")
	Op string

	// Message is a human-readable description
	Message string

	// Err is the underlying error
	Err error
}

// Kind represents the kind/category of error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindNotFound
	KindConflict
	KindRateLimit
	KindTimeout
	KindCanceled
	KindUnavailable
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimit:
		return "rate_limit"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	case KindUnavailable:
		return "unavailable"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// HTTPStatus returns the response status used when a Kind reaches the HTTP layer.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCanceled:
		// nginx convention for a client that went away mid-request
		return 499
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// =============================================================================
// API Error
// =============================================================================

// APIError is the JSON error payload written by the portal API.
type APIError struct {
	// StatusCode is the HTTP status code
	StatusCode int `json:"status_code"`

	// Code is the error kind (e.g. "not_found")
	Code string `json:"code"`

	// Message is the error message
	Message string `json:"message"`

	// RequestID is the request ID for debugging
	RequestID string `json:"request_id,omitempty"`

	// Details contains additional error context, such as validation messages
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("[%s] %s: %s (request_id: %s)", e.Code, http.StatusText(e.StatusCode), e.Message, e.RequestID)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, http.StatusText(e.StatusCode), e.Message)
}

// ToAPIError converts any error into the API payload.
func ToAPIError(err error, requestID string) *APIError {
	if apiErr, ok := IsAPIError(err); ok {
		return apiErr
	}
	kind := GetKind(err)
	msg := err.Error()
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		msg = e.Message
	}
	return &APIError{
		StatusCode: kind.HTTPStatus(),
		Code:       kind.String(),
		Message:    msg,
		RequestID:  requestID,
	}
}

// =============================================================================
// Constructors
// =============================================================================

// E constructs an Error from the given arguments.
// Arguments can be: Kind, string (Op or Message), error.
func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			e.Kind = a
		case string:
			if e.Op == "" {
				e.Op = a
			} else {
				e.Message = a
			}
		case error:
			e.Err = a
		}
	}
	return e
}

// New creates a new simple error.
func New(message string) error {
	return &Error{Message: message}
}

// NotFound builds a KindNotFound error for a lookup miss.
func NotFound(op, entity, id string) error {
	return &Error{
		Kind:    KindNotFound,
		Op:      op,
		Message: fmt.Sprintf("%s with id %s not found", entity, id),
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: GetKind(err), Err: err}
}

// FromContext maps a context error onto a Kind so cancelled loads surface
// consistently.
func FromContext(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Op: op, Message: "operation timed out", Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindCanceled, Op: op, Message: "operation canceled", Err: err}
	default:
		return Wrap(err, op)
	}
}

// =============================================================================
// Error Checkers
// =============================================================================

// GetKind returns the Kind of the error, or KindUnknown.
// Wrapped errors without their own Kind defer to the error they wrap.
func GetKind(err error) Kind {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return KindUnknown
		}
		if e.Kind != KindUnknown {
			return e.Kind
		}
		err = e.Err
	}
	return KindUnknown
}

// IsAPIError checks if err is an APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFoundError checks if the error is a not found error.
func IsNotFoundError(err error) bool {
	if GetKind(err) == KindNotFound {
		return true
	}
	if apiErr, ok := IsAPIError(err); ok {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsInvalidInputError checks if the error is a validation error.
func IsInvalidInputError(err error) bool {
	return GetKind(err) == KindInvalidInput
}

// =============================================================================
// Common Errors
// =============================================================================

var (
	// ErrNotFound matches any KindNotFound error with errors.Is.
	ErrNotFound = &Error{Kind: KindNotFound, Message: "not found"}

	// ErrInvalidInput matches any KindInvalidInput error with errors.Is.
	ErrInvalidInput = &Error{Kind: KindInvalidInput, Message: "invalid input"}
)
