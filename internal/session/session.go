package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/wabot/internal/agent"
	"github.com/gosuda/wabot/internal/automation"
	"github.com/gosuda/wabot/internal/domain"
	"github.com/gosuda/wabot/internal/events"
	"github.com/gosuda/wabot/internal/profile"
)

// DriverResult is the outcome of InitDriver.
type DriverResult string

const (
	DriverStarted       DriverResult = "ok"
	DriverAlreadyActive DriverResult = "already_active"
)

// Session is one browser profile with its optional live browser, agents and
// event log. All browser use goes through one driver slot, so agents and
// API actions never touch the page concurrently.
type Session struct {
	id          string
	profileName string
	createdAt   time.Time
	headless    bool

	launcher Launcher
	store    *profile.Store
	opts     Options
	log      *events.Log
	// publish keeps sink order equal to log order.
	publish  sync.Mutex

	// ctl serializes lifecycle and agent control operations.
	ctl sync.Mutex

	mu         sync.RWMutex
	status     domain.SessionStatus
	metadata   map[string]any
	agents     map[domain.AgentKind]*agent.Agent
	autoPaused map[domain.AgentKind]bool
	watchStop  context.CancelFunc
	watchDone  chan struct{}

	// drive is a one-slot semaphore guarding actions and the page behind it.
	drive     chan struct{}
	actions   *automation.Actions
	hasDriver atomic.Bool
}

var _ agent.Host = (*Session)(nil)

func newSession(id, profileName string, headless bool, launcher Launcher, store *profile.Store, opts Options) *Session {
	return &Session{
		id:          id,
		profileName: profileName,
		createdAt:   opts.Now(),
		headless:    headless,
		launcher:    launcher,
		store:       store,
		opts:        opts,
		log:         events.NewLog(opts.EventLogCap),
		status:      domain.SessionStatusActive,
		metadata:    make(map[string]any),
		agents:      make(map[domain.AgentKind]*agent.Agent),
		autoPaused:  make(map[domain.AgentKind]bool),
		drive:       make(chan struct{}, 1),
	}
}

// SessionID implements agent.Host.
func (s *Session) SessionID() string { return s.id }

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// ProfileName returns the human profile label.
func (s *Session) ProfileName() string { return s.profileName }

// Status returns the lifecycle status.
func (s *Session) Status() domain.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// HasDriver reports whether a live browser is attached.
func (s *Session) HasDriver() bool { return s.hasDriver.Load() }

// Record implements agent.Host.
func (s *Session) Record(kind events.Kind, message string, payload map[string]any) {
	s.RecordEvent(kind, message, payload)
}

// RecordEvent appends an event to the session log and hands it to the sink.
// Sinks see a session's events in sequence order. It never fails.
func (s *Session) RecordEvent(kind events.Kind, message string, payload map[string]any) events.Event {
	s.publish.Lock()
	defer s.publish.Unlock()

	e := s.log.Append(events.Event{
		Time:      s.opts.Now(),
		SessionID: s.id,
		Kind:      kind,
		Message:   message,
		Payload:   payload,
	})

	log.Debug().Str("session_id", s.id).Str("kind", string(kind)).Uint64("seq", e.Seq).Msg(message)

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("session_id", s.id).Msg("session.Session.RecordEvent: sink panicked")
			}
		}()
		s.opts.Sink.Publish(e)
	}()
	return e
}

// Events returns, oldest first, the most recent limit events strictly after
// since.
func (s *Session) Events(since time.Time, limit int) []events.Event {
	return s.log.Since(since, limit)
}

// InitDriver launches the browser on the session's profile directory and
// opens WhatsApp Web. A failure moves the session to Error and is recorded.
// Agents paused by a session pause resume once the browser is back.
func (s *Session) InitDriver(ctx context.Context) (DriverResult, error) {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if s.HasDriver() {
		return DriverAlreadyActive, nil
	}
	if st := s.Status(); st == domain.SessionStatusPaused {
		return "", fmt.Errorf("session.Session.InitDriver(%s): status %s: %w", s.id, st, domain.ErrInvalidState)
	}

	s.RecordEvent(events.KindStatus, "Starting browser", map[string]any{"headless": s.headless})

	actions, err := s.launch(ctx)
	if err != nil {
		s.setStatus(domain.SessionStatusError)
		s.RecordEvent(events.KindError, "Failed to start browser: "+err.Error(), map[string]any{"error": err.Error()})
		log.Error().Err(err).Str("session_id", s.id).Msg("session.Session.InitDriver: launch failed")
		return "", fmt.Errorf("session.Session.InitDriver(%s): %w", s.id, err)
	}

	if err := s.acquire(ctx); err != nil {
		_ = actions.Surface().Close()
		return "", fmt.Errorf("session.Session.InitDriver(%s): %w", s.id, err)
	}
	s.actions = actions
	s.hasDriver.Store(true)
	s.releaseSlot()

	s.setStatus(domain.SessionStatusActive)
	s.RecordEvent(events.KindStatus, "Browser started", nil)
	s.resumeAutoPaused()

	return DriverStarted, nil
}

func (s *Session) launch(ctx context.Context) (*automation.Actions, error) {
	dir, err := s.store.Ensure(s.id)
	if err != nil {
		return nil, err
	}

	surface, err := s.launcher.Launch(ctx, dir, s.headless)
	if err != nil {
		return nil, err
	}

	actions := automation.New(surface, s.opts.Automation, s.Record)
	if err := actions.Open(ctx); err != nil {
		if cerr := surface.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("session_id", s.id).Msg("session.Session.launch: close after failed open")
		}
		return nil, err
	}
	return actions, nil
}

// Pause releases the browser and pauses running agents. Only valid from Active.
func (s *Session) Pause() bool {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	if s.status != domain.SessionStatusActive {
		s.mu.Unlock()
		return false
	}
	s.status = domain.SessionStatusPaused
	for kind, a := range s.agents {
		if a.Pause() {
			s.autoPaused[kind] = true
		}
	}
	s.mu.Unlock()

	s.stopLoginWatch()
	s.releaseDriver()
	s.RecordEvent(events.KindStatus, "Session paused", nil)
	return true
}

// Resume marks a paused session Active. The browser is not restarted; call
// InitDriver for that.
func (s *Session) Resume() bool {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	if s.status != domain.SessionStatusPaused {
		s.mu.Unlock()
		return false
	}
	s.status = domain.SessionStatusActive
	s.mu.Unlock()

	s.RecordEvent(events.KindStatus, "Session resumed, browser must be re-initialized", nil)
	return true
}

// Teardown stops every agent and the login watcher, releases the browser and
// marks the session Stopped. It is safe to call repeatedly.
func (s *Session) Teardown() {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.stopLoginWatch()

	for kind, a := range s.agentSnapshot() {
		if err := a.Stop(); err != nil {
			log.Error().Err(err).Str("session_id", s.id).Str("agent", string(kind)).Msg("session.Session.Teardown: stop agent")
		}
	}

	s.releaseDriver()

	s.mu.Lock()
	already := s.status == domain.SessionStatusStopped
	s.status = domain.SessionStatusStopped
	clear(s.autoPaused)
	s.mu.Unlock()

	if !already {
		s.RecordEvent(events.KindStatus, "Session stopped", nil)
	}
}

// UpdateMetadata sets a metadata key and records it.
func (s *Session) UpdateMetadata(key string, value any) {
	s.mu.Lock()
	s.metadata[key] = value
	s.mu.Unlock()

	s.RecordEvent(events.KindMetadata, "Metadata updated: "+key, map[string]any{"key": key, "value": value})
}

// Snapshot returns the session's current state. Every agent kind is listed,
// Disabled when never enabled.
func (s *Session) Snapshot() domain.SessionInfo {
	s.mu.RLock()
	meta := make(map[string]any, len(s.metadata))
	for k, v := range s.metadata {
		meta[k] = v
	}
	status := s.status
	s.mu.RUnlock()

	return domain.SessionInfo{
		SessionID:    s.id,
		ProfileName:  s.profileName,
		Status:       status,
		CreatedAt:    s.createdAt,
		MessageCount: s.log.Len(),
		HasDriver:    s.HasDriver(),
		Headless:     s.headless,
		Metadata:     meta,
		Agents:       s.AgentStatuses(),
	}
}

func (s *Session) setStatus(to domain.SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.ValidTransition(to) {
		s.status = to
	}
}

// WithActions implements agent.Host.
func (s *Session) WithActions(ctx context.Context, fn func(ctx context.Context, a agent.Actions) error) error {
	return s.withDriver(ctx, func(ctx context.Context, a *automation.Actions) error {
		return fn(ctx, a)
	})
}

// withDriver runs fn holding the driver slot. It fails with
// domain.ErrNoDriver when no browser is attached.
func (s *Session) withDriver(ctx context.Context, fn func(ctx context.Context, a *automation.Actions) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.releaseSlot()

	if s.actions == nil {
		return domain.ErrNoDriver
	}
	return fn(ctx, s.actions)
}

func (s *Session) acquire(ctx context.Context) error {
	select {
	case s.drive <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) releaseSlot() { <-s.drive }

// releaseDriver waits for the in-flight browser action, detaches the browser
// and closes it.
func (s *Session) releaseDriver() {
	_ = s.acquire(context.Background())
	actions := s.actions
	s.actions = nil
	s.hasDriver.Store(false)
	s.releaseSlot()

	if actions == nil {
		return
	}
	if err := actions.Surface().Close(); err != nil && !errors.Is(err, automation.ErrSurfaceClosed) {
		log.Warn().Err(err).Str("session_id", s.id).Msg("session.Session.releaseDriver: close browser")
	}
	s.RecordEvent(events.KindStatus, "Browser closed", nil)
}
