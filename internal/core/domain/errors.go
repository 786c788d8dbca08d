package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the authentication flow.
var (
	// ErrNotSignedIn indicates an operation requires a signed-in session
	// and none exists. No network call is attempted.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrLoginCancelled indicates the user closed the interactive login
	// surface before completing authorization.
	ErrLoginCancelled = errors.New("login cancelled")

	// ErrLoginTimeout indicates the interactive login did not complete
	// within the allowed time.
	ErrLoginTimeout = errors.New("login timed out")

	// ErrLoginInProgress indicates an interactive login or refresh was
	// requested while another one is still running.
	ErrLoginInProgress = errors.New("login already in progress")

	// ErrSearchTooShort indicates a user search prefix shorter than the
	// two-character minimum.
	ErrSearchTooShort = errors.New("search needs at least 2 characters")
)

// AuthorizationError is returned when the identity provider reports an
// error during the interactive authorization step (user denied consent,
// provider rejected the request). No state is changed.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("authorization error: %s", e.Code)
	}
	return fmt.Sprintf("authorization error: %s - %s", e.Code, e.Description)
}

// ProtocolError is returned when the redirect from the identity provider
// is malformed: no authorization code, no error parameter, or a state
// mismatch.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// TokenExchangeError is returned when the token endpoint responds with a
// non-2xx status or an error payload, for both the authorization_code and
// refresh_token grants.
type TokenExchangeError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *TokenExchangeError) Error() string {
	msg := fmt.Sprintf("token exchange failed: status %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Description != "" {
		msg += " - " + e.Description
	}
	return msg
}
