// ABOUTME: Periodic liveness-reporting loop for a running agent.
// ABOUTME: Cancellable with bounded-latency stop; report failures never kill the loop.

package heartbeat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/JustRK-07/SIP/internal/backend"
	"github.com/JustRK-07/SIP/internal/metrics"
)

// ErrAlreadyRunning is returned by Start when the loop is already active.
var ErrAlreadyRunning = errors.New("heartbeat: scheduler already running")

// Reporter is the slice of the backend API the scheduler needs.
// *backend.API implements it.
type Reporter interface {
	Heartbeat(ctx context.Context, agentID string, status backend.Status, snap *metrics.Snapshot) error
	RegisterLocal(ctx context.Context, reg backend.LocalRegistration) error
}

// Scheduler runs the heartbeat loop: once per interval it builds a metrics
// snapshot and sends a RUNNING report, plus the optional local registration.
// Sends are best-effort; a failure is logged and the loop continues.
//
// The terminal STOPPED report is not the scheduler's job; the lifecycle
// controller sends it exactly once after the loop has been joined.
type Scheduler struct {
	api          Reporter
	agentID      string
	registration *backend.LocalRegistration
	metrics      *metrics.Aggregator
	interval     time.Duration
	logger       *slog.Logger

	mu        sync.Mutex
	running   bool
	startTime time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  *sync.Once
}

// Params configures a Scheduler.
type Params struct {
	API     Reporter
	AgentID string
	// Registration, when non-nil, is re-announced on every tick so a web UI
	// restart naturally re-learns this agent.
	Registration *backend.LocalRegistration
	Metrics      *metrics.Aggregator
	Interval     time.Duration
	Logger       *slog.Logger
}

// NewScheduler creates a stopped Scheduler. A zero interval defaults to 30s.
func NewScheduler(p Params) *Scheduler {
	if p.Interval <= 0 {
		p.Interval = 30 * time.Second
	}
	return &Scheduler{
		api:          p.API,
		agentID:      p.AgentID,
		registration: p.Registration,
		metrics:      p.Metrics,
		interval:     p.Interval,
		logger:       p.Logger,
	}
}

// Start launches the heartbeat loop. The start instant anchors the uptime
// reported in every snapshot. Returns ErrAlreadyRunning when re-entered.
func (s *Scheduler) Start(ctx context.Context, start time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	s.running = true
	s.startTime = start
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.stopOnce = &sync.Once{}

	go s.run(ctx, s.stopCh, s.doneCh)

	s.logger.Info("heartbeat scheduler started",
		"agent_id", s.agentID,
		"interval", s.interval,
	)
	return nil
}

// Stop signals the loop and waits for it to exit, up to the given timeout.
// It reports whether the loop was observed to finish within the bound; the
// caller proceeds with the terminal notification either way. Safe to call
// repeatedly and concurrently.
func (s *Scheduler) Stop(timeout time.Duration) bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return true
	}
	stopCh, doneCh, once := s.stopCh, s.doneCh, s.stopOnce
	s.mu.Unlock()

	once.Do(func() { close(stopCh) })

	select {
	case <-doneCh:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return true
	case <-time.After(timeout):
		s.logger.Warn("heartbeat loop did not stop within bound",
			"agent_id", s.agentID,
			"timeout", timeout,
		)
		return false
	}
}

// Running reports whether the loop is currently active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// run executes the loop: send a report immediately, then once per interval,
// until the stop channel or the context fires. The inter-tick sleep is
// interruptible, so shutdown latency is bounded by one in-flight send.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	timer := time.NewTimer(0) // fire the first report immediately
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// Re-check after waking: never start a report once stop is requested.
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		s.tick(ctx)
		timer.Reset(s.interval)
	}
}

// tick sends one RUNNING report and, when configured, the local registration.
func (s *Scheduler) tick(ctx context.Context) {
	snap := s.metrics.Snapshot(time.Now(), s.startTime)

	if err := s.api.Heartbeat(ctx, s.agentID, backend.StatusRunning, &snap); err != nil {
		s.logger.Warn("heartbeat send failed", "agent_id", s.agentID, "error", err)
	} else {
		s.logger.Info("heartbeat sent",
			"agent_id", s.agentID,
			"uptime_seconds", int64(snap.UptimeSeconds),
			"total_calls", snap.TotalCalls,
		)
	}

	if s.registration != nil {
		if err := s.api.RegisterLocal(ctx, *s.registration); err != nil {
			s.logger.Warn("local registration failed", "agent_id", s.agentID, "error", err)
		}
	}
}
