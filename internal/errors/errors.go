// Package errors provides custom error types for the agent backend client.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common cases
var (
	ErrEmptyMessage    = errors.New("message cannot be empty")
	ErrNotReady        = errors.New("workflow not ready")
	ErrInvalidResponse = errors.New("invalid response format")
	ErrClientClosed    = errors.New("client is closed")
)

// DefaultErrorMessage is used when the backend returns no usable message.
const DefaultErrorMessage = "An error occurred"

// APIError represents a non-2xx response from the backend
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("API error at %s: %s", e.Endpoint, e.Message)
}

// Is matches ErrNotReady for 404 responses.
func (e *APIError) Is(target error) bool {
	if target == ErrNotReady {
		return e.StatusCode == http.StatusNotFound
	}
	_, ok := target.(*APIError)
	return ok
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, endpoint, message string) *APIError {
	if message == "" {
		message = DefaultErrorMessage
	}
	return &APIError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// NetworkError represents a transport failure before any response arrived
type NetworkError struct {
	Operation string
	Endpoint  string
	Err       error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return e.Operation
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(operation, endpoint string, err error) *NetworkError {
	return &NetworkError{Operation: operation, Endpoint: endpoint, Err: err}
}

// ValidationError is a request rejected locally before it was sent
type ValidationError struct {
	StatusCode int
	Err        error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps err with a 400 status.
func NewValidationError(err error) *ValidationError {
	return &ValidationError{StatusCode: http.StatusBadRequest, Err: err}
}

// ParseError represents a response parsing error
type ParseError struct {
	Message string
	Path    string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *ParseError) Is(target error) bool {
	if target == ErrInvalidResponse {
		return true
	}
	_, ok := target.(*ParseError)
	return ok
}

// NewParseError creates a new ParseError
func NewParseError(message, path string) *ParseError {
	return &ParseError{Message: message, Path: path}
}

// GetHTTPStatus returns the HTTP status carried by err, or 0.
// Network failures report 500, matching what the page shows for them.
func GetHTTPStatus(err error) int {
	if err == nil {
		return 0
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.StatusCode
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return http.StatusInternalServerError
	}

	return 0
}

// GetEndpoint returns the endpoint an error was raised for, if known.
func GetEndpoint(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Endpoint
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Endpoint
	}
	return ""
}

// IsNotFound reports whether err is a 404 from the backend.
// The history endpoint answers 404 while the workflow is still starting.
func IsNotFound(err error) bool {
	return GetHTTPStatus(err) == http.StatusNotFound
}

// IsNetworkError reports whether err is a transport failure.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsParseError reports whether err is a response parsing failure.
func IsParseError(err error) bool {
	return errors.Is(err, ErrInvalidResponse)
}
