// ABOUTME: Wires config, session, backend API, and controller into one agent runtime.
// ABOUTME: Converts context cancellation (signals) into exactly one orderly Stop.

package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JustRK-07/SIP/internal/backend"
	"github.com/JustRK-07/SIP/internal/config"
	"github.com/JustRK-07/SIP/internal/descriptor"
	"github.com/JustRK-07/SIP/internal/lifecycle"
	"github.com/JustRK-07/SIP/internal/metrics"
	"github.com/JustRK-07/SIP/internal/session"
)

// Runtime owns one agent's full run: session, controller, and shutdown path.
type Runtime struct {
	cfg        *config.Config
	logger     *slog.Logger
	client     *session.Client
	api        *backend.API
	controller *lifecycle.Controller
	instanceID string

	shutdownOnce sync.Once
	finalSnap    metrics.Snapshot
}

// New assembles a Runtime from configuration and an optional agent
// descriptor. The descriptor, when present, seeds the local registration
// payload; deploy fills whatever it leaves empty.
func New(cfg *config.Config, desc *descriptor.Descriptor, logger *slog.Logger) *Runtime {
	client := session.NewClient(cfg.Backend.URL, cfg.Backend.RequestTimeout, logger)
	api := backend.NewAPI(client, logger)
	instanceID := uuid.New().String()

	var registration *backend.LocalRegistration
	if cfg.Registration.Enabled {
		registration = &backend.LocalRegistration{
			AgentID:    cfg.Agent.ID,
			ProcessID:  strconv.Itoa(os.Getpid()),
			InstanceID: instanceID,
			Host:       cfg.Registration.Host,
			Port:       cfg.Registration.Port,
		}
		if desc != nil {
			registration.Name = desc.Name
			registration.Description = desc.Description
			registration.Model = desc.Model
			registration.Voice = desc.Voice
			registration.Temperature = desc.Temperature
			registration.Prompt = desc.Prompt
		}
	}

	controller := lifecycle.NewController(lifecycle.Params{
		Session:      client,
		API:          api,
		Metrics:      metrics.NewAggregator(),
		AgentID:      cfg.Agent.ID,
		Interval:     cfg.Heartbeat.Interval,
		StopTimeout:  cfg.Heartbeat.StopTimeout,
		Registration: registration,
		Logger:       logger,
	})

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		client:     client,
		api:        api,
		controller: controller,
		instanceID: instanceID,
	}
}

// Controller exposes the lifecycle controller so call-handling collaborators
// can record call outcomes. No process-global state is involved.
func (r *Runtime) Controller() *lifecycle.Controller {
	return r.controller
}

// API exposes the typed backend surface for auxiliary commands.
func (r *Runtime) API() *backend.API {
	return r.api
}

// Login authenticates the backend session. Fatal on failure; the caller
// exits non-zero.
func (r *Runtime) Login(ctx context.Context) error {
	return r.controller.Login(ctx, r.cfg.Credentials.Username, r.cfg.Credentials.Password)
}

// Run drives the supervisor end to end: deploy, start, block until the
// context is cancelled (operator interrupt or orchestrator termination),
// then perform the orderly stop. Login must have succeeded first.
func (r *Runtime) Run(ctx context.Context) error {
	detail, err := r.controller.Deploy(ctx)
	if err != nil {
		return fmt.Errorf("deploying agent: %w", err)
	}

	if err := r.controller.Start(ctx); err != nil {
		return fmt.Errorf("starting agent: %w", err)
	}

	r.logger.Info("agent runtime up",
		"agent_id", r.cfg.Agent.ID,
		"name", detail.Name,
		"instance_id", r.instanceID,
		"heartbeat_interval", r.cfg.Heartbeat.Interval,
		"backend", r.cfg.Backend.URL,
	)

	// The signal handler only cancels the context; the stop sequence runs
	// here on normal control flow, never inside the handler.
	<-ctx.Done()

	r.Shutdown()
	return nil
}

// Shutdown performs the stop sequence exactly once, under a fresh context so
// a cancelled run context cannot starve the terminal report. Idempotent:
// repeated termination requests collapse into the first.
func (r *Runtime) Shutdown() metrics.Snapshot {
	r.shutdownOnce.Do(func() {
		timeout := r.cfg.Heartbeat.StopTimeout + 2*r.cfg.Backend.RequestTimeout
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		r.finalSnap = r.controller.Stop(ctx)
	})
	return r.finalSnap
}

// Uptime formats a final snapshot's uptime for display.
func Uptime(snap metrics.Snapshot) string {
	return (time.Duration(snap.UptimeSeconds * float64(time.Second))).Round(time.Second).String()
}
