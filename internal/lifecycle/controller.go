// ABOUTME: Owns the agent's login/deploy/run/stop state machine.
// ABOUTME: Stop is idempotent and sends exactly one terminal STOPPED report.

package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/JustRK-07/SIP/internal/backend"
	"github.com/JustRK-07/SIP/internal/heartbeat"
	"github.com/JustRK-07/SIP/internal/metrics"
)

// Lifecycle errors
var (
	// ErrNotAuthenticated rejects Deploy before a successful Login.
	ErrNotAuthenticated = errors.New("lifecycle: not authenticated")

	// ErrAlreadyAuthenticated rejects a second Login.
	ErrAlreadyAuthenticated = errors.New("lifecycle: already authenticated")

	// ErrNotDeployed rejects Start before a successful Deploy.
	ErrNotDeployed = errors.New("lifecycle: agent not deployed")

	// ErrAlreadyRunning rejects a re-entrant Start. The existing run is
	// unaffected.
	ErrAlreadyRunning = errors.New("lifecycle: agent already running")
)

// Authenticator is the slice of the session client the controller needs.
type Authenticator interface {
	Login(ctx context.Context, username, password string) error
}

// API is the backend surface the controller drives. *backend.API implements it.
type API interface {
	heartbeat.Reporter
	Deploy(ctx context.Context, agentID string) (*backend.AgentDetail, error)
	Unregister(ctx context.Context, agentID string) error
}

// Controller sequences one agent's authenticated run. All state transitions
// are serialized behind its mutex; the heartbeat loop runs outside the lock.
type Controller struct {
	session Authenticator
	api     API
	metrics *metrics.Aggregator
	sched   *heartbeat.Scheduler
	logger  *slog.Logger

	agentID     string
	stopTimeout time.Duration
	// registration is announced by the scheduler each tick and torn down by
	// Stop; nil when local registration is disabled.
	registration *backend.LocalRegistration

	mu        sync.Mutex
	state     State
	identity  *backend.AgentDetail
	startTime time.Time

	stopOnce  sync.Once
	finalSnap metrics.Snapshot
}

// Params configures a Controller.
type Params struct {
	Session      Authenticator
	API          API
	Metrics      *metrics.Aggregator
	AgentID      string
	Interval     time.Duration
	StopTimeout  time.Duration
	Registration *backend.LocalRegistration
	Logger       *slog.Logger
}

// NewController creates a Controller in StateUnauthenticated.
func NewController(p Params) *Controller {
	c := &Controller{
		session:      p.Session,
		api:          p.API,
		metrics:      p.Metrics,
		logger:       p.Logger,
		agentID:      p.AgentID,
		stopTimeout:  p.StopTimeout,
		registration: p.Registration,
		state:        StateUnauthenticated,
	}
	c.sched = heartbeat.NewScheduler(heartbeat.Params{
		API:          p.API,
		AgentID:      p.AgentID,
		Registration: p.Registration,
		Metrics:      p.Metrics,
		Interval:     p.Interval,
		Logger:       p.Logger,
	})
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Identity returns the agent descriptor captured at deploy, or nil before.
// Set once; immutable afterwards.
func (c *Controller) Identity() *backend.AgentDetail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// RecordCall registers one externally handled call. The call-handling
// collaborator holds a reference to the controller; no global state.
func (c *Controller) RecordCall(success bool) {
	c.metrics.RecordCall(success)
}

// Login authenticates the session. On failure the controller stays
// unauthenticated and the session error (an *session.AuthError) propagates.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	c.mu.Lock()
	if c.state != StateUnauthenticated {
		c.mu.Unlock()
		return ErrAlreadyAuthenticated
	}
	c.mu.Unlock()

	if err := c.session.Login(ctx, username, password); err != nil {
		return err
	}

	c.mu.Lock()
	c.state = StateAuthenticated
	c.mu.Unlock()
	return nil
}

// Deploy marks the configured agent as ACTIVE in the backend and captures its
// identity. A missing agent surfaces as a *backend.DeployError with NotFound
// set, distinct from generic backend failure.
func (c *Controller) Deploy(ctx context.Context) (*backend.AgentDetail, error) {
	c.mu.Lock()
	if c.state != StateAuthenticated {
		c.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	c.mu.Unlock()

	detail, err := c.api.Deploy(ctx, c.agentID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.identity = detail
	c.state = StateDeployed
	if c.registration != nil {
		c.fillRegistrationLocked(detail)
	}
	c.mu.Unlock()

	c.logger.Info("agent deployed",
		"agent_id", c.agentID,
		"name", detail.Name,
		"status", detail.Status,
	)
	return detail, nil
}

// fillRegistrationLocked copies identity fields into the local registration
// payload where the descriptor left them empty. Caller holds c.mu.
func (c *Controller) fillRegistrationLocked(detail *backend.AgentDetail) {
	c.registration.AgentID = c.agentID
	if c.registration.Name == "" {
		c.registration.Name = detail.Name
	}
	if c.registration.Description == "" {
		c.registration.Description = detail.Description
	}
	if c.registration.Model == "" {
		c.registration.Model = detail.Model
	}
	if c.registration.Voice == "" {
		c.registration.Voice = detail.Voice
	}
	if c.registration.Temperature == 0 {
		c.registration.Temperature = detail.Temperature
	}
	if c.registration.Prompt == "" {
		c.registration.Prompt = detail.Prompt
	}
}

// Start records the run-start instant, transitions to Running, and launches
// the heartbeat loop.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateRunning:
		c.mu.Unlock()
		return ErrAlreadyRunning
	case StateDeployed:
	default:
		c.mu.Unlock()
		return ErrNotDeployed
	}

	c.startTime = time.Now()
	c.state = StateRunning
	start := c.startTime
	c.mu.Unlock()

	if err := c.sched.Start(ctx, start); err != nil {
		c.mu.Lock()
		c.state = StateDeployed
		c.mu.Unlock()
		return err
	}

	c.logger.Info("agent running", "agent_id", c.agentID)
	return nil
}

// Stop performs the orderly shutdown sequence: flip the running flag, join
// the heartbeat loop within the stop bound, send exactly one best-effort
// terminal STOPPED report, unregister, and compute final metrics. Every step
// is absorbed so a failure in one never blocks the rest. Safe to call
// repeatedly and from concurrent goroutines; later calls return the final
// snapshot of the first.
func (c *Controller) Stop(ctx context.Context) metrics.Snapshot {
	c.mu.Lock()
	if c.state == StateStopped {
		snap := c.finalSnap
		c.mu.Unlock()
		return snap
	}
	if c.state != StateRunning && c.state != StateStopping {
		// Nothing is running: no loop to join, no terminal report owed.
		snap := c.metrics.Snapshot(time.Now(), c.startTime)
		c.mu.Unlock()
		return snap
	}
	c.state = StateStopping
	start := c.startTime
	c.mu.Unlock()

	c.stopOnce.Do(func() {
		c.logger.Info("stopping agent", "agent_id", c.agentID)

		// Bounded join: no stray RUNNING report may follow the terminal one.
		if !c.sched.Stop(c.stopTimeout) {
			c.logger.Warn("proceeding to terminal report without join", "agent_id", c.agentID)
		}

		if err := c.api.Heartbeat(ctx, c.agentID, backend.StatusStopped, nil); err != nil {
			c.logger.Warn("terminal report failed", "agent_id", c.agentID, "error", err)
		}

		if c.registration != nil {
			if err := c.api.Unregister(ctx, c.agentID); err != nil {
				c.logger.Warn("unregister failed", "agent_id", c.agentID, "error", err)
			}
		}

		snap := c.metrics.Snapshot(time.Now(), start)

		c.mu.Lock()
		c.finalSnap = snap
		c.state = StateStopped
		c.mu.Unlock()

		c.logger.Info("agent stopped",
			"agent_id", c.agentID,
			"uptime_seconds", int64(snap.UptimeSeconds),
			"total_calls", snap.TotalCalls,
			"successful_calls", snap.SuccessfulCalls,
			"success_rate", snap.SuccessRate,
		)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalSnap
}
