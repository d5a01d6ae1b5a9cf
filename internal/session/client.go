// ABOUTME: Authenticated HTTP session against the GOBI backend.
// ABOUTME: Holds the bearer token after login and attaches it to every request.

package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every backend request issued through the client.
const DefaultTimeout = 10 * time.Second

// Client wraps an authenticated HTTP session with the backend. A Client is
// created unauthenticated; a successful Login sets the bearer token exactly
// once. Re-login requires a new Client.
//
// The token is written only by Login and read by every later request, so no
// lock is needed once the caller sequences Login before concurrent use.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	token         string
	authenticated bool
	logger        *slog.Logger
}

// NewClient creates a Client for the given backend base URL. A zero timeout
// falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// BaseURL returns the backend base URL the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Authenticated reports whether a login has succeeded on this client.
func (c *Client) Authenticated() bool {
	return c.authenticated
}

// Timeout returns the per-request timeout applied to backend calls.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// loginResponse is the body returned by the auth endpoint on success.
type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

// Login authenticates against POST /api/auth/login and stores the returned
// bearer token for all subsequent requests. Any non-200 response or transport
// failure leaves the client unauthenticated and returns an *AuthError.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if c.authenticated {
		return ErrAlreadyAuthenticated
	}

	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("encoding login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AuthError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &AuthError{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &AuthError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var lr loginResponse
	if err := json.Unmarshal(respBody, &lr); err != nil {
		return &AuthError{Status: resp.StatusCode, Err: fmt.Errorf("decoding login response: %w", err)}
	}
	if lr.AccessToken == "" {
		return &AuthError{Status: resp.StatusCode, Body: "login response missing accessToken"}
	}

	c.token = lr.AccessToken
	c.authenticated = true

	if claims, err := InspectToken(lr.AccessToken); err == nil {
		c.logger.Info("login successful",
			"username", username,
			"subject", claims.Subject,
			"token_expires", claims.ExpiresAt.Format(time.RFC3339),
		)
	} else {
		c.logger.Info("login successful", "username", username)
	}

	return nil
}

// Do issues an HTTP request with the stored bearer token attached. The body,
// when non-nil, is JSON-encoded. Non-2xx statuses are not errors; callers
// inspect the returned status explicitly. Transport-level failures surface as
// *TransportError.
func (c *Client) Do(ctx context.Context, method, path string, body any) (int, json.RawMessage, error) {
	if !c.authenticated {
		return 0, nil, ErrNotAuthenticated
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{Method: method, Path: path, Err: err}
	}

	return resp.StatusCode, respBody, nil
}
