// ABOUTME: Typed API surface over the session client for GOBI backend routes.
// ABOUTME: Covers agent listing, deploy, heartbeat, and local-agent registration.

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JustRK-07/SIP/internal/metrics"
)

// Doer issues an authenticated request and returns the raw status and body.
// *session.Client implements it.
type Doer interface {
	Do(ctx context.Context, method, path string, body any) (int, json.RawMessage, error)
}

// API exposes the backend routes the agent consumes. It never retries; the
// heartbeat loop's cadence is the only retry mechanism in the system.
type API struct {
	client Doer
	logger *slog.Logger
}

// NewAPI wraps an authenticated session client.
func NewAPI(client Doer, logger *slog.Logger) *API {
	return &API{client: client, logger: logger}
}

// ListAgents fetches the agents visible to the authenticated user. Returns
// nil and logs on any failure; listing is a convenience, never fatal.
func (a *API) ListAgents(ctx context.Context) ([]AgentSummary, error) {
	status, body, err := a.client.Do(ctx, http.MethodGet, "/api/agents", nil)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("listing agents: status %d: %s", status, body)
	}

	var resp struct {
		Agents []AgentSummary `json:"agents"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding agent list: %w", err)
	}
	return resp.Agents, nil
}

// GetAgent fetches a single agent descriptor. A 404 returns (nil, nil) so
// callers can distinguish "unknown agent" from a backend failure.
func (a *API) GetAgent(ctx context.Context, agentID string) (*AgentDetail, error) {
	status, body, err := a.client.Do(ctx, http.MethodGet, "/api/agents/"+agentID, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching agent %s: %w", agentID, err)
	}
	switch status {
	case http.StatusOK:
		var detail AgentDetail
		if err := json.Unmarshal(body, &detail); err != nil {
			return nil, fmt.Errorf("decoding agent %s: %w", agentID, err)
		}
		return &detail, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("fetching agent %s: status %d: %s", agentID, status, body)
	}
}

// Deploy marks the agent as ACTIVE in the backend, carrying the fixed
// capability payload, and returns the agent descriptor from the response
// envelope. A 404 yields a *DeployError with NotFound set.
func (a *API) Deploy(ctx context.Context, agentID string) (*AgentDetail, error) {
	payload := deployRequest{
		RecordCalls:        true,
		TranscribeRealtime: true,
	}

	status, body, err := a.client.Do(ctx, http.MethodPost, "/api/agents/"+agentID+"/deploy", payload)
	if err != nil {
		return nil, fmt.Errorf("deploying agent %s: %w", agentID, err)
	}
	if status != http.StatusOK {
		return nil, &DeployError{
			AgentID:  agentID,
			Status:   status,
			Message:  string(body),
			NotFound: status == http.StatusNotFound,
		}
	}

	var resp struct {
		Agent AgentDetail `json:"agent"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding deploy response for %s: %w", agentID, err)
	}
	return &resp.Agent, nil
}

// Heartbeat reports the agent's liveness status. The metrics snapshot is
// optional: the terminal STOPPED report carries none.
func (a *API) Heartbeat(ctx context.Context, agentID string, status Status, snap *metrics.Snapshot) error {
	payload := heartbeatRequest{Status: status, Metrics: snap}

	code, body, err := a.client.Do(ctx, http.MethodPost, "/api/agents/"+agentID+"/heartbeat", payload)
	if err != nil {
		return fmt.Errorf("sending heartbeat for %s: %w", agentID, err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("heartbeat for %s rejected: status %d: %s", agentID, code, body)
	}
	return nil
}

// RegisterLocal announces this process as a locally running agent to the web
// UI. Failures are expected to be absorbed by the caller; the next heartbeat
// tick re-sends the registration anyway.
func (a *API) RegisterLocal(ctx context.Context, reg LocalRegistration) error {
	code, body, err := a.client.Do(ctx, http.MethodPost, "/api/local-agents/heartbeat", reg)
	if err != nil {
		return fmt.Errorf("registering local agent %s: %w", reg.AgentID, err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("local registration for %s rejected: status %d: %s", reg.AgentID, code, body)
	}
	return nil
}

// Unregister removes this process from the web UI's local-agent list.
// Best-effort: called once during shutdown, never retried.
func (a *API) Unregister(ctx context.Context, agentID string) error {
	payload := map[string]string{"agentId": agentID}

	code, body, err := a.client.Do(ctx, http.MethodPost, "/api/local-agents/remove", payload)
	if err != nil {
		return fmt.Errorf("unregistering local agent %s: %w", agentID, err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("unregister for %s rejected: status %d: %s", agentID, code, body)
	}
	return nil
}
