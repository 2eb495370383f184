package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// NetworkMessage is shown whenever a request failed before any response arrived.
const NetworkMessage = "Network error, please try again"

// HTTPError is a non-2xx response, normalized by the API client.
//
// Message is the server's "message" (or "detail") field when it sent one,
// otherwise a generic "Request failed with status N".
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError builds an HTTPError, falling back to the generic message.
func NewHTTPError(status int, message string) *HTTPError {
	if strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("Request failed with status %d", status)
	}
	return &HTTPError{Status: status, Message: message}
}

// NetworkError is a transport failure: DNS, refused connection, timeout.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationErrors maps a form field to its message. A non-empty value blocks
// submission; nothing is sent to the server.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return strings.Join(parts, "; ")
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an
// *HTTPError (network failures, validation errors, nil).
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// IsStatus reports whether err is an *HTTPError with the given status.
func IsStatus(err error, status int) bool {
	return err != nil && StatusOf(err) == status
}

// IsNotFound reports a 404 response.
func IsNotFound(err error) bool { return IsStatus(err, http.StatusNotFound) }

// IsForbidden reports a 403 response.
func IsForbidden(err error) bool { return IsStatus(err, http.StatusForbidden) }

// IsUnauthorized reports a 401 response.
func IsUnauthorized(err error) bool { return IsStatus(err, http.StatusUnauthorized) }

// IsNetwork reports a transport failure.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// UserMessage turns any client-side error into the text a page shows.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsNetwork(err) {
		return NetworkMessage
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	var v ValidationErrors
	if errors.As(err, &v) {
		return "Please fix the highlighted fields"
	}
	return err.Error()
}
