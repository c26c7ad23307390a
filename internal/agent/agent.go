// Package agent runs per-session background behaviors (auto-reply and
// outreach) behind one start/stop/pause/resume state machine.
package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/wabot/internal/domain"
	"github.com/gosuda/wabot/internal/events"
)

// ErrStopTimeout is returned when a loop did not exit within the stop timeout.
var ErrStopTimeout = errors.New("agent: stop timed out") //nolint:gochecknoglobals // sentinel error

const (
	defaultTick        = 100 * time.Millisecond
	defaultStopTimeout = 5 * time.Second
)

// Option configures an Agent.
type Option func(*Agent)

// WithTick sets the poll granularity for pause checks and sleeps.
func WithTick(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.tick = d
		}
	}
}

// WithStopTimeout bounds how long Stop waits for the loop to exit.
func WithStopTimeout(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.stopTimeout = d
		}
	}
}

// Agent is one behavior bound to a session.
type Agent struct {
	host        Host
	behavior    Behavior
	tick        time.Duration
	stopTimeout time.Duration

	mu      sync.Mutex
	status  domain.AgentStatus
	lastErr string
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Disabled agent.
func New(host Host, behavior Behavior, opts ...Option) *Agent {
	a := &Agent{
		host:        host,
		behavior:    behavior,
		tick:        defaultTick,
		stopTimeout: defaultStopTimeout,
		status:      domain.AgentStatusDisabled,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Kind returns the behavior kind.
func (a *Agent) Kind() domain.AgentKind { return a.behavior.Kind() }

// Behavior returns the behavior.
func (a *Agent) Behavior() Behavior { return a.behavior }

// Status returns the current status.
func (a *Agent) Status() domain.AgentStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// LastError returns the message of the fault that put the agent in Error.
func (a *Agent) LastError() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Info snapshots the agent.
func (a *Agent) Info() domain.AgentInfo {
	a.mu.Lock()
	status, lastErr := a.status, a.lastErr
	a.mu.Unlock()

	return domain.AgentInfo{
		Kind:      a.Kind(),
		Status:    status,
		LastError: lastErr,
		Stats:     a.behavior.Stats(),
	}
}

// Start validates the behavior and spawns its loop. It is valid from
// Disabled and Error.
func (a *Agent) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status.Active() {
		return fmt.Errorf("agent.Agent.Start(%s): status %s: %w", a.Kind(), a.status, domain.ErrInvalidState)
	}

	if err := a.behavior.Validate(); err != nil {
		a.status = domain.AgentStatusError
		a.lastErr = err.Error()
		a.host.Record(events.KindError, "Agent failed to start: "+err.Error(), map[string]any{
			"event": "agent_start_failed",
			"agent": string(a.Kind()),
			"error": err.Error(),
		})
		return fmt.Errorf("agent.Agent.Start(%s): %w", a.Kind(), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.status = domain.AgentStatusEnabled
	a.lastErr = ""
	a.cancel = cancel
	a.done = done

	go a.run(ctx, done)
	return nil
}

// Stop cancels the loop, waits up to the stop timeout for it to exit,
// discards the behavior's running state, and leaves the agent Disabled.
func (a *Agent) Stop() error {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.status = domain.AgentStatusDisabled
	a.mu.Unlock()

	var err error
	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-time.After(a.stopTimeout):
			err = fmt.Errorf("agent.Agent.Stop(%s): %w", a.Kind(), ErrStopTimeout)
			log.Error().Err(err).Str("session_id", a.host.SessionID()).Msg("agent.Agent.Stop: loop still running")
		}
	}

	a.behavior.Reset()
	return err
}

// Pause moves Enabled to Paused. It reports whether the status changed.
func (a *Agent) Pause() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != domain.AgentStatusEnabled {
		return false
	}
	a.status = domain.AgentStatusPaused
	return true
}

// Resume moves Paused to Enabled. It reports whether the status changed.
func (a *Agent) Resume() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != domain.AgentStatusPaused {
		return false
	}
	a.status = domain.AgentStatusEnabled
	return true
}

func (a *Agent) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	kind := string(a.Kind())
	logger := log.With().Str("session_id", a.host.SessionID()).Str("agent", kind).Logger()
	rt := &Runtime{agent: a}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("agent.Agent.run: recovered panic")
			a.fail(ctx, fmt.Errorf("panic: %v", r))
		}
	}()

	rt.Record(events.KindStatus, "Agent started", map[string]any{"event": "started"})
	logger.Info().Msg("agent.Agent.run: started")

	for {
		if err := rt.Gate(ctx); err != nil {
			break
		}

		out, err := a.behavior.RunCycle(ctx, rt)
		if ctx.Err() != nil || errors.Is(err, errNotRunning) {
			break
		}
		if err != nil {
			logger.Error().Err(err).Msg("agent.Agent.run: cycle failed")
			a.fail(ctx, err)
			return
		}
		if out.Done {
			a.finish(ctx)
			logger.Info().Msg("agent.Agent.run: finished")
			return
		}
		if err := rt.Sleep(ctx, out.Wait); err != nil {
			break
		}
	}

	rt.Record(events.KindLog, "Agent stopped", map[string]any{"event": "stopped"})
	logger.Info().Msg("agent.Agent.run: stopped")
}

// fail moves a still-running agent to Error. A concurrent Stop wins.
func (a *Agent) fail(ctx context.Context, err error) {
	a.mu.Lock()
	if ctx.Err() != nil || !a.status.Active() {
		a.mu.Unlock()
		return
	}
	a.status = domain.AgentStatusError
	a.lastErr = err.Error()
	a.release()
	a.mu.Unlock()

	a.host.Record(events.KindError, "Agent error: "+err.Error(), map[string]any{
		"event": "agent_error",
		"agent": string(a.Kind()),
		"error": err.Error(),
	})
}

// finish moves a completed agent to Disabled, keeping its state.
func (a *Agent) finish(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ctx.Err() != nil || !a.status.Active() {
		return
	}
	a.status = domain.AgentStatusDisabled
	a.release()
}

// release drops the loop handles after the loop ended on its own. Callers
// hold mu.
func (a *Agent) release() {
	if a.cancel != nil {
		a.cancel()
	}
	a.cancel, a.done = nil, nil
}
