// ABOUTME: Best-effort JWT claim inspection for access tokens issued by the backend.
// ABOUTME: Parses without verification; the backend is the authority, not this client.

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry indicates the token carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiry claim")

// TokenClaims holds the subset of JWT claims the agent cares about.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// InspectToken decodes the claims of a backend-issued access token without
// verifying the signature. The agent has no signing secret; inspection is
// only used for logging and for warning about imminent expiry.
func InspectToken(tokenString string) (*TokenClaims, error) {
	parser := jwt.NewParser()

	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", token.Claims)
	}

	out := &TokenClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrNoExpiry
	}
	out.ExpiresAt = exp.Time

	return out, nil
}
