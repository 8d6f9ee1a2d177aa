package backend

import (
	"errors"
	"fmt"
)

// RequestError is a non-2xx HTTP response from the backend. Message carries
// the server-provided detail when present, otherwise it is empty and callers
// fall back to a generic status-coded message.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned HTTP %d", e.Status)
}

// NetworkError means no response was received at all: timeout, DNS failure,
// connection refused.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("backend unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError means the response body was not well-formed JSON where JSON was
// expected.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed backend response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UserMessage converts a client error into text fit for a notification.
// RequestError keeps the server-provided message when there is one;
// NetworkError collapses to a generic unreachable message since the
// transport detail helps nobody at the UI level.
func UserMessage(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Message != "" {
			return reqErr.Message
		}
		return fmt.Sprintf("server error (HTTP %d)", reqErr.Status)
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return "server unreachable"
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return "unexpected server response"
	}
	return err.Error()
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Status == 404
}
