package agent

import (
	"context"
	"errors"
	"time"

	"github.com/gosuda/wabot/internal/domain"
	"github.com/gosuda/wabot/internal/events"
)

// errNotRunning is returned by Gate once the agent is neither enabled nor paused.
var errNotRunning = errors.New("agent: not running")

// Runtime is what a behavior sees of its agent while a cycle runs.
type Runtime struct {
	agent *Agent
}

// SessionID returns the owning session id.
func (rt *Runtime) SessionID() string { return rt.agent.host.SessionID() }

// Record appends an event to the session log, tagged with the agent kind.
func (rt *Runtime) Record(kind events.Kind, message string, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["agent"] = string(rt.agent.Kind())
	rt.agent.host.Record(kind, message, payload)
}

// Paused reports whether the agent is paused.
func (rt *Runtime) Paused() bool {
	return rt.agent.Status() == domain.AgentStatusPaused
}

// Gate blocks while the agent is paused, polling at the agent tick.
func (rt *Runtime) Gate(ctx context.Context) error {
	for {
		switch rt.agent.Status() {
		case domain.AgentStatusEnabled:
			return ctx.Err()
		case domain.AgentStatusPaused:
		default:
			return errNotRunning
		}
		if err := rt.wait(ctx, rt.agent.tick); err != nil {
			return err
		}
	}
}

// Sleep waits d in tick-sized steps so cancellation lands within one tick.
func (rt *Runtime) Sleep(ctx context.Context, d time.Duration) error {
	for d > 0 {
		step := min(d, rt.agent.tick)
		if err := rt.wait(ctx, step); err != nil {
			return err
		}
		d -= step
	}
	return ctx.Err()
}

// Act runs fn with exclusive browser access once the agent is not paused. The
// pause flag is checked again after the browser lock is taken, so a pause
// that lands while waiting for the lock holds off the action. A session pause
// detaches the browser while agents may be queued for it; an agent that finds
// no driver while paused waits at the gate instead of failing.
func (rt *Runtime) Act(ctx context.Context, fn func(ctx context.Context, a Actions) error) error {
	for {
		if err := rt.Gate(ctx); err != nil {
			return err
		}
		paused := false
		err := rt.agent.host.WithActions(ctx, func(ctx context.Context, a Actions) error {
			if rt.agent.Status() != domain.AgentStatusEnabled {
				paused = true
				return nil
			}
			return fn(ctx, a)
		})
		if errors.Is(err, domain.ErrNoDriver) && rt.Paused() {
			paused = true
		}
		if !paused {
			return err
		}
	}
}

func (rt *Runtime) wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
