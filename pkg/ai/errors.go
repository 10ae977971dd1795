package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials is returned when a provider has no usable credentials.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrEmptyResponse is returned when the backend answered without any choice.
	ErrEmptyResponse = errors.New("response contained no choices")
)

// APIError describes a failure after the backend produced a response: a
// non-success status, an undecodable body or a body with no usable content.
type APIError struct {
	Provider   string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
