package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// HTTPError is a non-2xx response from a reachable server.
type HTTPError struct {
	StatusCode int
	Code       string // backend error code, when the body carries one
	Message    string // parsed message, or the raw body text
	Body       []byte
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	if e.Code != "" {
		return fmt.Sprintf("http %d: [%s] %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, msg)
}

// NetworkError is a request that never produced a response.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// maxMessageLen bounds raw-text messages taken from error bodies.
const maxMessageLen = 512

// newHTTPError builds an HTTPError, pulling a message out of JSON bodies
// shaped like {"message": ...}, {"error": ...} or {"detail": ...}.
func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status, Body: body}

	var payload struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
		Detail  string          `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		e.Code = payload.Code
		switch {
		case payload.Message != "":
			e.Message = payload.Message
		case payload.Detail != "":
			e.Message = payload.Detail
		case len(payload.Error) > 0:
			var s string
			if json.Unmarshal(payload.Error, &s) == nil {
				e.Message = s
			} else {
				e.Message = string(payload.Error)
			}
		}
		return e
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen] + "..."
	}
	e.Message = text
	return e
}

// IsNetworkError reports whether err is (or wraps) a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// AsHTTPError returns the *HTTPError in err's chain, if any.
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	if he, ok := AsHTTPError(err); ok {
		return he.StatusCode
	}
	return 0
}
