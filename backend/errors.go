package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid backend configuration")
	// ErrNoConnection indicates a transport failure talking to the backend
	ErrNoConnection = errors.New("failed to connect to backend")
	// ErrInvalidResponse indicates a response body that could not be decoded
	ErrInvalidResponse = errors.New("invalid response from backend")
	// ErrNoFileIDs is returned when a trash request names no files
	ErrNoFileIDs = errors.New("file IDs required")
	// ErrUnknownPhase is returned for task phases the backend does not know
	ErrUnknownPhase = errors.New("unknown task phase")
)

// APIError represents a non-2xx answer from the backend
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("backend API error: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// newAPIError builds an APIError from a failed response. The backend sends
// {"error": "..."}; anything else falls back to the status text.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Body:       string(body),
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	return apiErr
}

// IsUnauthorized reports whether err is an authentication failure from the backend
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsUnauthorized()
}

// Message returns the text worth showing to a user for err: the server's own
// message for API errors, a short transport note otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, ErrNoConnection) {
		return "Cannot reach the server"
	}
	if errors.Is(err, ErrInvalidResponse) {
		return "Unexpected response from the server"
	}
	return err.Error()
}
