// ABOUTME: Error taxonomy for the backend session client.
// ABOUTME: Separates auth failures from transport failures so callers can branch.

package session

import (
	"errors"
	"fmt"
)

// Session errors
var (
	// ErrNotAuthenticated is returned when a request is issued before login.
	ErrNotAuthenticated = errors.New("session: not authenticated")

	// ErrAlreadyAuthenticated is returned when Login is called twice; the
	// token is set at most once per client.
	ErrAlreadyAuthenticated = errors.New("session: already authenticated")
)

// AuthError indicates the login request failed, either because the backend
// rejected the credentials (Status/Body set) or because the request never
// completed (Err set).
type AuthError struct {
	Status int
	Body   string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login failed: %v", e.Err)
	}
	return fmt.Sprintf("login failed: status %d: %s", e.Status, e.Body)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// TransportError indicates a request could not be completed at the network
// level (DNS, connection refused, timeout). Application-level non-2xx
// responses are not transport errors; they surface as plain status codes.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
