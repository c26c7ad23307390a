// Package session owns browser profiles as sessions: one optional live
// browser per session, its agents and its event log, plus the process-wide
// registry that creates, pauses, stops and deletes them.
package session

import (
	"context"
	"time"

	"github.com/gosuda/wabot/internal/agent"
	"github.com/gosuda/wabot/internal/automation"
	"github.com/gosuda/wabot/internal/events"
)

// Launcher starts a browser on a profile directory.
type Launcher interface {
	Launch(ctx context.Context, userDataDir string, headless bool) (automation.Surface, error)
}

// Options tune every session a Manager creates.
type Options struct {
	EventLogCap       int
	LoginWatchTimeout time.Duration
	LoginPollInterval time.Duration
	AgentStopTimeout  time.Duration
	// AgentTick is the agents' pause and cancellation poll granularity.
	AgentTick  time.Duration
	Headless   bool
	Automation automation.Config
	Registry   *agent.Registry
	// Generator is nil when no language model is configured.
	Generator agent.TextGenerator
	Sink      events.Sink
	// History backfills event reads past the log capacity. Nil disables it.
	History   History
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.EventLogCap <= 0 {
		o.EventLogCap = events.DefaultCapacity
	}
	if o.LoginWatchTimeout <= 0 {
		o.LoginWatchTimeout = 60 * time.Second
	}
	if o.LoginPollInterval <= 0 {
		o.LoginPollInterval = 2 * time.Second
	}
	if o.AgentStopTimeout <= 0 {
		o.AgentStopTimeout = 5 * time.Second
	}
	if o.AgentTick <= 0 {
		o.AgentTick = 100 * time.Millisecond
	}
	if o.Registry == nil {
		o.Registry = agent.DefaultRegistry()
	}
	if o.Sink == nil {
		o.Sink = events.Discard
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
