package api

import (
	"errors"
	"fmt"
	"net/http"
)

// UnverifiedDetail is the 401 detail the backend sends for accounts whose
// email address has not been verified yet. It does not end the session.
const UnverifiedDetail = "Please verify your email first"

// Error is a non-2xx response from the backend.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	// Detail is the backend's "detail" field when it is a string.
	Detail string
}

func (e *Error) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// Message returns the text to show a user for this error.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return http.StatusText(e.StatusCode)
}

// RequestError is a request that never produced a response (network failure,
// cancelled context, undecodable body).
type RequestError struct {
	Method  string
	Path    string
	Message string
	Cause   error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status of err, or 0 when err is not an *Error.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsUnverified reports whether err is the unverified-email 401.
func IsUnverified(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) &&
		apiErr.StatusCode == http.StatusUnauthorized &&
		apiErr.Detail == UnverifiedDetail
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
