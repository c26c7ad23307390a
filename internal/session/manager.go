package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/wabot/internal/domain"
	"github.com/gosuda/wabot/internal/events"
	"github.com/gosuda/wabot/internal/profile"
)

// Manager is the process-wide session registry.
type Manager struct {
	store    *profile.Store
	launcher Launcher
	opts     Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(store *profile.Store, launcher Launcher, opts Options) *Manager {
	return &Manager{
		store:    store,
		launcher: launcher,
		opts:     opts.withDefaults(),
		sessions: make(map[string]*Session),
	}
}

// CreateRequest describes a create-or-resume call. Headless nil uses the
// configured default.
type CreateRequest struct {
	ProfileName string
	SessionID   string
	Headless    *bool
}

// CreateOrResume returns the registered session for req.SessionID, resumes
// an unregistered id under that exact id, or mints a new id from the
// profile name. The second result reports whether a session was registered.
func (m *Manager) CreateOrResume(req CreateRequest) (*Session, bool, error) {
	id := strings.TrimSpace(req.SessionID)
	name := strings.TrimSpace(req.ProfileName)

	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false, nil
		}
	}

	resumed := id != ""
	switch {
	case id != "":
		if _, decoded, ok := profile.Decode(id); ok && decoded != "" {
			name = decoded
		} else if name == "" {
			name = profile.ProfileName(id)
		}
	case name == "":
		return nil, false, fmt.Errorf("session.Manager.CreateOrResume: %w", domain.ErrProfileRequired)
	default:
		id = profile.NewSessionID(name)
	}
	if !profile.Fits(id) {
		return nil, false, fmt.Errorf("session.Manager.CreateOrResume: profile name over %d bytes: %w", profile.MaxNameBytes, domain.ErrPrecondition)
	}

	headless := m.opts.Headless
	if req.Headless != nil {
		headless = *req.Headless
	}

	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return s, false, nil
	}
	s := newSession(id, name, headless, m.launcher, m.store, m.opts)
	m.sessions[id] = s
	m.mu.Unlock()

	msg := "Session created"
	if resumed {
		msg = "Session resumed"
	}
	s.RecordEvent(events.KindStatus, msg, map[string]any{
		"profile_name": name,
		"profile_dir":  m.store.Dir(id),
		"on_disk":      m.store.Exists(id),
	})
	log.Info().Str("session_id", id).Str("profile", name).Bool("resumed", resumed).Msg("session.Manager.CreateOrResume")

	return s, true, nil
}

// Get returns a registered session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Pause releases a session's browser. False when absent or not Active.
func (m *Manager) Pause(id string) bool {
	s, ok := m.Get(id)
	return ok && s.Pause()
}

// Resume marks a paused session Active. False when absent or not Paused.
func (m *Manager) Resume(id string) bool {
	s, ok := m.Get(id)
	return ok && s.Resume()
}

// Stop tears a session down but keeps it registered, so its log and
// snapshot stay readable. The profile directory is untouched.
func (m *Manager) Stop(id string) bool {
	s, ok := m.Get(id)
	if !ok {
		return false
	}
	s.Teardown()
	return true
}

// Delete tears a session down and unregisters it. With purge the profile
// directory is removed as well.
func (m *Manager) Delete(id string, purge bool) (bool, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return false, nil
	}

	s.Teardown()
	s.RecordEvent(events.KindStatus, "Session deleted", map[string]any{"purged": purge})

	if purge {
		if err := m.store.Purge(id); err != nil {
			return true, fmt.Errorf("session.Manager.Delete(%s): %w", id, err)
		}
	}
	log.Info().Str("session_id", id).Bool("purged", purge).Msg("session.Manager.Delete")
	return true, nil
}

// ListActive returns snapshots of every registered session, oldest first.
func (m *Manager) ListActive() []domain.SessionInfo {
	m.mu.RLock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.RUnlock()

	out := make([]domain.SessionInfo, 0, len(list))
	for _, s := range list {
		out = append(out, s.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ListSavedProfiles enumerates profile directories on disk. A profile is
// active when its session is registered and not Stopped.
func (m *Manager) ListSavedProfiles() ([]domain.ProfileInfo, error) {
	entries, err := m.store.List()
	if err != nil {
		return nil, fmt.Errorf("session.Manager.ListSavedProfiles: %w", err)
	}

	out := make([]domain.ProfileInfo, 0, len(entries))
	for _, e := range entries {
		info := domain.ProfileInfo{
			SessionID:   e.SessionID,
			ProfileName: e.ProfileName,
			Dir:         e.Dir,
			ModifiedAt:  e.ModifiedAt,
		}
		if s, ok := m.Get(e.SessionID); ok {
			info.Status = s.Status()
			info.IsActive = info.Status != domain.SessionStatusStopped
		}
		out = append(out, info)
	}
	return out, nil
}

// Shutdown deletes every session, keeping profiles on disk.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	list := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		list = append(list, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for _, s := range list {
			wg.Go(s.Teardown)
		}
		wg.Wait()
	}()

	select {
	case <-done:
		log.Info().Int("sessions", len(list)).Msg("session.Manager.Shutdown: complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session.Manager.Shutdown: %w", ctx.Err())
	}
}
