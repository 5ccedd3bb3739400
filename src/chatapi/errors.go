package chatapi

import (
	"errors"
	"fmt"
)

// ErrMissingBaseURL is returned by NewClient when no base URL is configured.
// This is fatal at startup: nothing can be requested without it.
var ErrMissingBaseURL = errors.New("chatapi: base URL is required")

// ErrMissingBody is returned when a streaming response arrives without a
// readable body.
var ErrMissingBody = errors.New("chatapi: response has no body")

// APIError is a structured non-2xx response from the chat service.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("chat api error %d (request %s): %s", e.StatusCode, e.RequestID, e.Message)
	}
	return fmt.Sprintf("chat api error %d: %s", e.StatusCode, e.Message)
}
