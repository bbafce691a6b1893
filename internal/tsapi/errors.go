package tsapi

import (
	"errors"
	"fmt"
)

// Caller-input violations, raised before any HTTP request is made.
var (
	// ErrNoAccountKeys is returned when an endpoint requiring account keys is
	// called with none.
	ErrNoAccountKeys = errors.New("at least one account key is required")
	// ErrTooManyAccountKeys is returned when more than 25 account keys are
	// passed; the API rejects longer lists.
	ErrTooManyAccountKeys = errors.New("cannot request more than 25 account keys")
	// ErrEmptySymbolFilter is returned when a symbol filter is provided but
	// contains no symbols. Pass nil for an unfiltered request.
	ErrEmptySymbolFilter = errors.New("symbol filter cannot be empty")
)

// AuthenticationError indicates the request could not be authenticated:
// either local token validation failed (StatusCode 0, no request was made) or
// the API answered 401/403.
type AuthenticationError struct {
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// RateLimitError indicates the API answered 429.
type RateLimitError struct {
	Endpoint string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s", e.Endpoint)
}

// APIError carries any other non-2xx API response, with the parsed error body
// when the API returned JSON.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       map[string]any
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API error for %s (status %d)", e.Endpoint, e.StatusCode)
	if detail, ok := e.Body["Message"].(string); ok && detail != "" {
		msg += ": " + detail
	}
	return msg
}

// NetworkError indicates a transport-level failure before any API response
// was received.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error accessing %s: %v", e.Endpoint, e.Err)
}

// Unwrap exposes the underlying transport error for errors.Is checks.
func (e *NetworkError) Unwrap() error {
	return e.Err
}
