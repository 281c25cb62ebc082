package api

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrAuthFailed is returned when an auth endpoint rejects the request
	// (bad credentials, invalid OTP, non-2xx status) or the response is
	// missing the token field.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrServerUnreachable is returned when the backend cannot be contacted.
	ErrServerUnreachable = errors.New("server unreachable")
)

// APIError is the base error type for non-2xx backend responses.
type APIError struct {
	// Code is a machine-readable error code, e.g. "HTTP_404".
	Code string
	// Status is the HTTP status code of the response.
	Status int
	// Err is the underlying error.
	Err error
}

// Error returns the error message.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("api [%s]: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("api [%s]", e.Code)
}

// Unwrap returns the underlying error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// AuthError is returned when an auth endpoint call fails.
// Network failures, non-2xx responses, and malformed success payloads all
// collapse into this one kind; callers own the user-facing messaging.
type AuthError struct {
	// Op is the auth operation that failed ("login", "signup", ...).
	Op string
	// Message is the backend-supplied message, if any.
	Message string
	// Err is the underlying error.
	Err error
}

// Error returns a human-readable description of the auth failure.
func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("auth %s failed: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("auth %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("auth %s failed", e.Op)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrAuthFailed).
func (e *AuthError) Is(target error) bool {
	return target == ErrAuthFailed
}

// ServerUnreachableError is returned when the backend cannot be contacted.
type ServerUnreachableError struct {
	// Cause is the underlying transport error.
	Cause error
}

// Error returns a human-readable description of the transport failure.
func (e *ServerUnreachableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("server unreachable: %v", e.Cause)
	}
	return "server unreachable"
}

// Unwrap returns the underlying error cause.
func (e *ServerUnreachableError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrServerUnreachable).
func (e *ServerUnreachableError) Is(target error) bool {
	return target == ErrServerUnreachable
}

// isConnectionError reports whether err is a transport-level failure.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	// HTTP errors carry a status and are not connection errors.
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}

	// All other errors from http.Client.Do are connection errors
	// (DNS resolution, connection refused, TLS handshake, timeouts).
	return true
}
