package api

import (
	"errors"
	"fmt"
)

// AuthError indicates that the server rejected the request's credentials
// (HTTP 401 or 403): the access token is missing, expired or revoked.
type AuthError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%d) on %s %s: %s", e.Code, e.Method, e.Path, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// TransportError wraps a failure to reach the server at all.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("executing request %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err (or any error in its chain) is a
// TransportError.
func IsTransportError(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// StatusError is returned for any other non-2xx response. Body holds the
// raw response, which for validation failures is a JSON object mapping
// field names to messages.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d on %s %s: %s", e.Code, e.Method, e.Path, e.Body)
}

// StatusCode returns the HTTP status carried by err, or 0 when err is
// not an AuthError or StatusError.
func StatusCode(err error) int {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Code
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}
