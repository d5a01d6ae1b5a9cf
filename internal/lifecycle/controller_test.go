// ABOUTME: Tests for the lifecycle controller state machine.
// ABOUTME: Covers transition safety, idempotent stop, and terminal report ordering.

package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustRK-07/SIP/internal/backend"
	"github.com/JustRK-07/SIP/internal/metrics"
)

// stubSession implements Authenticator.
type stubSession struct {
	loginErr error
	logins   int
}

func (s *stubSession) Login(context.Context, string, string) error {
	s.logins++
	return s.loginErr
}

// stubAPI records the full report stream so tests can assert ordering.
type stubAPI struct {
	mu            sync.Mutex
	deployErr     error
	deployDetail  *backend.AgentDetail
	heartbeatErr  error
	statuses      []backend.Status
	unregistered  []string
	registrations int
}

func (a *stubAPI) Deploy(context.Context, string) (*backend.AgentDetail, error) {
	if a.deployErr != nil {
		return nil, a.deployErr
	}
	if a.deployDetail != nil {
		return a.deployDetail, nil
	}
	return &backend.AgentDetail{ID: "agent-1", Name: "Setter", Status: "ACTIVE"}, nil
}

func (a *stubAPI) Heartbeat(_ context.Context, _ string, status backend.Status, _ *metrics.Snapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statuses = append(a.statuses, status)
	return a.heartbeatErr
}

func (a *stubAPI) RegisterLocal(context.Context, backend.LocalRegistration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.registrations++
	return nil
}

func (a *stubAPI) Unregister(_ context.Context, agentID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unregistered = append(a.unregistered, agentID)
	return nil
}

func (a *stubAPI) statusStream() []backend.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]backend.Status, len(a.statuses))
	copy(out, a.statuses)
	return out
}

func newTestController(session *stubSession, api *stubAPI, reg *backend.LocalRegistration) *Controller {
	return NewController(Params{
		Session:      session,
		API:          api,
		Metrics:      metrics.NewAggregator(),
		AgentID:      "agent-1",
		Interval:     25 * time.Millisecond,
		StopTimeout:  time.Second,
		Registration: reg,
		Logger:       slog.Default(),
	})
}

func TestController_HappyPath(t *testing.T) {
	session := &stubSession{}
	api := &stubAPI{}
	ctrl := newTestController(session, api, nil)
	ctx := context.Background()

	assert.Equal(t, StateUnauthenticated, ctrl.State())

	require.NoError(t, ctrl.Login(ctx, "admin", "secret"))
	assert.Equal(t, StateAuthenticated, ctrl.State())

	detail, err := ctrl.Deploy(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Setter", detail.Name)
	assert.Equal(t, StateDeployed, ctrl.State())
	assert.Equal(t, "Setter", ctrl.Identity().Name)

	require.NoError(t, ctrl.Start(ctx))
	assert.Equal(t, StateRunning, ctrl.State())

	time.Sleep(60 * time.Millisecond)
	ctrl.Stop(ctx)
	assert.Equal(t, StateStopped, ctrl.State())
}

func TestController_TransitionGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("deploy before login", func(t *testing.T) {
		ctrl := newTestController(&stubSession{}, &stubAPI{}, nil)
		_, err := ctrl.Deploy(ctx)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("start before deploy", func(t *testing.T) {
		ctrl := newTestController(&stubSession{}, &stubAPI{}, nil)
		require.NoError(t, ctrl.Login(ctx, "a", "b"))
		assert.ErrorIs(t, ctrl.Start(ctx), ErrNotDeployed)
	})

	t.Run("second login", func(t *testing.T) {
		session := &stubSession{}
		ctrl := newTestController(session, &stubAPI{}, nil)
		require.NoError(t, ctrl.Login(ctx, "a", "b"))
		assert.ErrorIs(t, ctrl.Login(ctx, "a", "b"), ErrAlreadyAuthenticated)
		assert.Equal(t, 1, session.logins)
	})

	t.Run("re-entrant start", func(t *testing.T) {
		ctrl := newTestController(&stubSession{}, &stubAPI{}, nil)
		require.NoError(t, ctrl.Login(ctx, "a", "b"))
		_, err := ctrl.Deploy(ctx)
		require.NoError(t, err)
		require.NoError(t, ctrl.Start(ctx))
		defer ctrl.Stop(ctx)

		assert.ErrorIs(t, ctrl.Start(ctx), ErrAlreadyRunning)
		assert.Equal(t, StateRunning, ctrl.State())
	})
}

func TestController_FailedLoginStaysUnauthenticated(t *testing.T) {
	session := &stubSession{loginErr: errors.New("401")}
	ctrl := newTestController(session, &stubAPI{}, nil)

	err := ctrl.Login(context.Background(), "admin", "wrong")
	require.Error(t, err)
	assert.Equal(t, StateUnauthenticated, ctrl.State())
}

func TestController_DeployNotFound(t *testing.T) {
	api := &stubAPI{deployErr: &backend.DeployError{AgentID: "missing-id", Status: 404, NotFound: true}}
	ctrl := newTestController(&stubSession{}, api, nil)
	ctx := context.Background()

	require.NoError(t, ctrl.Login(ctx, "a", "b"))
	_, err := ctrl.Deploy(ctx)

	var deployErr *backend.DeployError
	require.ErrorAs(t, err, &deployErr)
	assert.True(t, deployErr.NotFound)
	assert.Equal(t, StateAuthenticated, ctrl.State(), "failed deploy must not advance state")
}

func TestController_StopIdempotent(t *testing.T) {
	api := &stubAPI{}
	ctrl := newTestController(&stubSession{}, api, nil)
	ctx := context.Background()

	require.NoError(t, ctrl.Login(ctx, "a", "b"))
	_, err := ctrl.Deploy(ctx)
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	time.Sleep(40 * time.Millisecond)
	first := ctrl.Stop(ctx)
	second := ctrl.Stop(ctx)

	assert.Equal(t, first, second, "second stop returns the first final snapshot")

	var stopped int
	for _, status := range api.statusStream() {
		if status == backend.StatusStopped {
			stopped++
		}
	}
	assert.Equal(t, 1, stopped, "exactly one terminal report")
}

func TestController_NoRunningReportAfterStop(t *testing.T) {
	api := &stubAPI{}
	ctrl := newTestController(&stubSession{}, api, nil)
	ctx := context.Background()

	require.NoError(t, ctrl.Login(ctx, "a", "b"))
	_, err := ctrl.Deploy(ctx)
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	time.Sleep(60 * time.Millisecond)
	ctrl.Stop(ctx)

	time.Sleep(60 * time.Millisecond) // more than two intervals after stop

	stream := api.statusStream()
	require.NotEmpty(t, stream)
	assert.Equal(t, backend.StatusStopped, stream[len(stream)-1],
		"terminal report must be the last report ever sent")
	for _, status := range stream[:len(stream)-1] {
		assert.Equal(t, backend.StatusRunning, status)
	}
}

func TestController_TerminalReportDespiteFailures(t *testing.T) {
	api := &stubAPI{heartbeatErr: errors.New("connection refused")}
	ctrl := newTestController(&stubSession{}, api, nil)
	ctx := context.Background()

	require.NoError(t, ctrl.Login(ctx, "a", "b"))
	_, err := ctrl.Deploy(ctx)
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	time.Sleep(40 * time.Millisecond)
	ctrl.Stop(ctx) // must not panic or hang even though every send fails

	assert.Equal(t, StateStopped, ctrl.State())
	assert.Contains(t, api.statusStream(), backend.StatusStopped)
}

func TestController_StopBeforeStartIsNoOp(t *testing.T) {
	api := &stubAPI{}
	ctrl := newTestController(&stubSession{}, api, nil)

	ctrl.Stop(context.Background())
	assert.Empty(t, api.statusStream(), "no terminal report for a run that never started")
	assert.Equal(t, StateUnauthenticated, ctrl.State())
}

func TestController_FinalSnapshotCountsCalls(t *testing.T) {
	api := &stubAPI{}
	ctrl := newTestController(&stubSession{}, api, nil)
	ctx := context.Background()

	require.NoError(t, ctrl.Login(ctx, "a", "b"))
	_, err := ctrl.Deploy(ctx)
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	ctrl.RecordCall(true)
	ctrl.RecordCall(true)
	ctrl.RecordCall(false)

	time.Sleep(30 * time.Millisecond)
	snap := ctrl.Stop(ctx)

	assert.Equal(t, int64(3), snap.TotalCalls)
	assert.Equal(t, int64(2), snap.SuccessfulCalls)
	assert.InDelta(t, 66.66, snap.SuccessRate, 0.1)
	assert.Greater(t, snap.UptimeSeconds, 0.0)
}

func TestController_RegistrationLifecycle(t *testing.T) {
	api := &stubAPI{deployDetail: &backend.AgentDetail{
		ID: "agent-1", Name: "Setter", Model: "gpt-4", Voice: "nova", Temperature: 0.7, Status: "ACTIVE",
	}}
	reg := &backend.LocalRegistration{Host: "localhost", ProcessID: "42"}
	ctrl := newTestController(&stubSession{}, api, reg)
	ctx := context.Background()

	require.NoError(t, ctrl.Login(ctx, "a", "b"))
	_, err := ctrl.Deploy(ctx)
	require.NoError(t, err)

	// identity fields flow into the registration payload
	assert.Equal(t, "agent-1", reg.AgentID)
	assert.Equal(t, "Setter", reg.Name)
	assert.Equal(t, "gpt-4", reg.Model)

	require.NoError(t, ctrl.Start(ctx))
	time.Sleep(60 * time.Millisecond)
	ctrl.Stop(ctx)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Greater(t, api.registrations, 0, "registration announced while running")
	assert.Equal(t, []string{"agent-1"}, api.unregistered, "unregistered exactly once on stop")
}

func TestController_ConcurrentStop(t *testing.T) {
	api := &stubAPI{}
	ctrl := newTestController(&stubSession{}, api, nil)
	ctx := context.Background()

	require.NoError(t, ctrl.Login(ctx, "a", "b"))
	_, err := ctrl.Deploy(ctx)
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	time.Sleep(30 * time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctrl.Stop(ctx)
		}()
	}
	wg.Wait()

	var stopped int
	for _, status := range api.statusStream() {
		if status == backend.StatusStopped {
			stopped++
		}
	}
	assert.Equal(t, 1, stopped, "concurrent stops still produce one terminal report")
	assert.Equal(t, StateStopped, ctrl.State())
}
