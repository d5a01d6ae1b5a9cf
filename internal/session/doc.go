// Package session provides the authenticated HTTP session used for every
// backend call the agent makes.
//
// # Lifecycle
//
// A Client starts unauthenticated. Login performs the one allowed
// unauthenticated request and, on HTTP 200, stores the returned bearer token.
// From then on Do attaches the token to every request automatically:
//
//	client := session.NewClient("http://localhost:3000", 10*time.Second, logger)
//	if err := client.Login(ctx, username, password); err != nil { ... }
//	status, body, err := client.Do(ctx, http.MethodGet, "/api/agents", nil)
//
// # Error taxonomy
//
// Do never treats a non-2xx status as an error; callers inspect the status
// themselves. Only two things fail a call:
//
//   - ErrNotAuthenticated: Do before a successful Login
//   - *TransportError: the request never completed (DNS, refused, timeout)
//
// Login failures are reported as *AuthError regardless of cause.
//
// There are no retries at this layer; retry policy belongs to callers.
package session
