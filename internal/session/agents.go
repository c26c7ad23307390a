package session

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/wabot/internal/agent"
	"github.com/gosuda/wabot/internal/domain"
	"github.com/gosuda/wabot/internal/events"
)

// EnableAgent starts the agent of the given kind, creating it on first use.
// On an agent that is already running, a nil config is a no-op and a non-nil
// config restarts it with the new configuration. A browser is required.
func (s *Session) EnableAgent(kind domain.AgentKind, config map[string]any) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if !s.HasDriver() {
		return fmt.Errorf("session.Session.EnableAgent(%s): %w", kind, domain.ErrNoDriver)
	}

	s.mu.RLock()
	a := s.agents[kind]
	s.mu.RUnlock()

	if a != nil && a.Status().Active() {
		if config == nil {
			return nil
		}
		if err := a.Stop(); err != nil {
			return fmt.Errorf("session.Session.EnableAgent(%s): %w", kind, err)
		}
		a = nil
	}

	if a == nil || config != nil {
		behavior, err := s.opts.Registry.Create(kind, config, agent.Deps{Generator: s.opts.Generator, Now: s.opts.Now})
		if err != nil {
			return fmt.Errorf("session.Session.EnableAgent: %w", err)
		}
		a = agent.New(s, behavior, agent.WithTick(s.opts.AgentTick), agent.WithStopTimeout(s.opts.AgentStopTimeout))

		s.mu.Lock()
		s.agents[kind] = a
		delete(s.autoPaused, kind)
		s.mu.Unlock()
	}

	if err := a.Start(); err != nil {
		return fmt.Errorf("session.Session.EnableAgent: %w", err)
	}
	log.Info().Str("session_id", s.id).Str("agent", string(kind)).Msg("session.Session.EnableAgent: started")
	return nil
}

// DisableAgent stops the agent and discards its running state. It reports
// false when the agent was never created.
func (s *Session) DisableAgent(kind domain.AgentKind) (bool, error) {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	a := s.agents[kind]
	delete(s.autoPaused, kind)
	s.mu.Unlock()

	if a == nil {
		return false, nil
	}
	if err := a.Stop(); err != nil {
		return true, fmt.Errorf("session.Session.DisableAgent(%s): %w", kind, err)
	}
	return true, nil
}

// PauseAgent pauses a running agent, keeping its running state.
func (s *Session) PauseAgent(kind domain.AgentKind) bool {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	a := s.agent(kind)
	if a == nil || !a.Pause() {
		return false
	}
	s.RecordEvent(events.KindStatus, "Agent paused", map[string]any{"agent": string(kind)})
	return true
}

// ResumeAgent resumes a paused agent.
func (s *Session) ResumeAgent(kind domain.AgentKind) bool {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	delete(s.autoPaused, kind)
	a := s.agents[kind]
	s.mu.Unlock()

	if a == nil || !a.Resume() {
		return false
	}
	s.RecordEvent(events.KindStatus, "Agent resumed", map[string]any{"agent": string(kind)})
	return true
}

// AgentStatuses returns every known agent kind, Disabled when never created.
func (s *Session) AgentStatuses() map[domain.AgentKind]domain.AgentInfo {
	agents := s.agentSnapshot()

	out := make(map[domain.AgentKind]domain.AgentInfo, len(domain.AgentKinds()))
	for _, kind := range domain.AgentKinds() {
		if a, ok := agents[kind]; ok {
			out[kind] = a.Info()
			continue
		}
		out[kind] = domain.AgentInfo{Kind: kind, Status: domain.AgentStatusDisabled}
	}
	return out
}

// AddContacts appends contacts to the outreach campaign and returns how many
// were new.
func (s *Session) AddContacts(contacts []string) (int, error) {
	a := s.agent(domain.AgentKindAutoOutreach)
	if a == nil {
		return 0, fmt.Errorf("session.Session.AddContacts: outreach agent: %w", domain.ErrNotFound)
	}
	o, ok := a.Behavior().(*agent.Outreach)
	if !ok {
		return 0, fmt.Errorf("session.Session.AddContacts: %w", domain.ErrInvalidKind)
	}

	added := o.AddContacts(contacts)
	s.RecordEvent(events.KindLog, "Contacts added", map[string]any{
		"agent": string(domain.AgentKindAutoOutreach),
		"event": "contacts_added",
		"count": added,
		"total": o.Stats()["total_contacts"],
	})
	return added, nil
}

func (s *Session) agent(kind domain.AgentKind) *agent.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agents[kind]
}

func (s *Session) agentSnapshot() map[domain.AgentKind]*agent.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.AgentKind]*agent.Agent, len(s.agents))
	for k, a := range s.agents {
		out[k] = a
	}
	return out
}

// resumeAutoPaused resumes exactly the agents a session pause suspended.
func (s *Session) resumeAutoPaused() {
	s.mu.Lock()
	var resume []*agent.Agent
	for kind := range s.autoPaused {
		if a := s.agents[kind]; a != nil {
			resume = append(resume, a)
		}
	}
	clear(s.autoPaused)
	s.mu.Unlock()

	for _, a := range resume {
		if a.Resume() {
			s.RecordEvent(events.KindStatus, "Agent resumed", map[string]any{"agent": string(a.Kind())})
		}
	}
}
