// ABOUTME: Wire types exchanged with the GOBI backend and web UI.
// ABOUTME: Field names follow the backend's JSON contract exactly.

package backend

import (
	"fmt"

	"github.com/JustRK-07/SIP/internal/metrics"
)

// Status is an agent liveness status as reported in heartbeats.
type Status string

// Heartbeat statuses
const (
	StatusRunning Status = "RUNNING"
	StatusStopped Status = "STOPPED"
)

// AgentSummary is one entry of the agent list response.
type AgentSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Model  string `json:"model"`
	Voice  string `json:"voice"`
	Status string `json:"status"`
}

// AgentDetail is the full agent descriptor returned by fetch and deploy.
// The configuration fields are opaque to the supervisor; they pass through
// untouched for display and local registration.
type AgentDetail struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Model       string  `json:"model"`
	Voice       string  `json:"voice"`
	Temperature float64 `json:"temperature"`
	Prompt      string  `json:"prompt"`
	Status      string  `json:"status"`
}

// deployRequest is the fixed capability payload sent on deploy.
type deployRequest struct {
	RecordCalls        bool `json:"recordCalls"`
	TranscribeRealtime bool `json:"transcribeRealtime"`
}

// heartbeatRequest is the liveness report body. Metrics is omitted on the
// terminal STOPPED report.
type heartbeatRequest struct {
	Status  Status            `json:"status"`
	Metrics *metrics.Snapshot `json:"metrics,omitempty"`
}

// LocalRegistration announces a locally running agent process to the web UI.
type LocalRegistration struct {
	AgentID     string  `json:"agentId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Model       string  `json:"model"`
	Voice       string  `json:"voice"`
	Temperature float64 `json:"temperature"`
	Prompt      string  `json:"prompt"`
	ProcessID   string  `json:"processId"`
	InstanceID  string  `json:"instanceId"`
	Host        string  `json:"host"`
	Port        int     `json:"port,omitempty"`
}

// DeployError reports a failed deploy. NotFound distinguishes the
// user-correctable "no such agent" case from generic backend failure.
type DeployError struct {
	AgentID  string
	Status   int
	Message  string
	NotFound bool
}

func (e *DeployError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("agent not found: %s", e.AgentID)
	}
	return fmt.Sprintf("deploying agent %s: status %d: %s", e.AgentID, e.Status, e.Message)
}
