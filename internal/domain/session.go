package domain

import "time"

type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusPaused  SessionStatus = "paused"
	SessionStatusStopped SessionStatus = "stopped"
	SessionStatusError   SessionStatus = "error"
)

// ValidTransition checks if a session state transition is allowed.
// Allowed: active->paused, paused->active, any->stopped, any->error,
// and error/stopped->active when a browser handle is (re)created.
func (s SessionStatus) ValidTransition(to SessionStatus) bool {
	switch to {
	case SessionStatusStopped, SessionStatusError:
		return true
	case SessionStatusPaused:
		return s == SessionStatusActive
	case SessionStatusActive:
		return s == SessionStatusPaused || s == SessionStatusError || s == SessionStatusStopped
	default:
		return false
	}
}

// SessionInfo is a point-in-time snapshot of a session.
type SessionInfo struct {
	SessionID    string                  `json:"session_id"`
	ProfileName  string                  `json:"profile_name"`
	Status       SessionStatus           `json:"status"`
	CreatedAt    time.Time               `json:"created_at"`
	MessageCount int                     `json:"message_count"`
	HasDriver    bool                    `json:"has_driver"`
	Headless     bool                    `json:"headless"`
	Metadata     map[string]any          `json:"metadata"`
	Agents       map[AgentKind]AgentInfo `json:"agents"`
}

// ProfileInfo describes a browser profile directory found on disk.
type ProfileInfo struct {
	SessionID   string        `json:"session_id"`
	ProfileName string        `json:"profile_name"`
	Dir         string        `json:"dir"`
	IsActive    bool          `json:"is_active"`
	Status      SessionStatus `json:"status,omitempty"`
	ModifiedAt  time.Time     `json:"modified_at"`
}
