package graph

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error types for Microsoft Graph API responses.
var (
	// ErrUnauthorised indicates the access token is invalid or expired.
	ErrUnauthorised = errors.New("graph: unauthorised")

	// ErrForbidden indicates the caller lacks permission for the
	// requested resource.
	ErrForbidden = errors.New("graph: forbidden")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("graph: not found")

	// ErrAlreadyMember indicates the member reference being added
	// already exists on the group.
	ErrAlreadyMember = errors.New("graph: already a member")

	// ErrRateLimited indicates the request was throttled.
	ErrRateLimited = errors.New("graph: rate limited")

	// ErrBadRequest indicates the request was malformed.
	ErrBadRequest = errors.New("graph: bad request")

	// ErrServerError indicates a server-side error from Microsoft Graph.
	ErrServerError = errors.New("graph: server error")
)

// APIError carries the structured detail of a Graph failure: the HTTP
// status plus the provider's error code and message, so the caller can
// render a useful message. It unwraps to one of the sentinel errors
// above for classification.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("graph request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("graph request failed with status %d: %s", e.StatusCode, e.Message)
}

// Unwrap classifies the failure into a sentinel error.
func (e *APIError) Unwrap() error {
	// The already-exists case arrives as a 400 whose message names the
	// existing object reference; Graph has no dedicated status for it.
	if e.StatusCode == http.StatusBadRequest && strings.Contains(e.Message, "already exist") {
		return ErrAlreadyMember
	}
	return WrapError(e.StatusCode)
}

// WrapError converts an HTTP status code to an appropriate sentinel error.
func WrapError(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorised
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		if statusCode >= 500 {
			return ErrServerError
		}
		return nil
	}
}

// IsRateLimited checks if the status code indicates rate limiting.
func IsRateLimited(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests
}
