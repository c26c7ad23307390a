package domain

import "fmt"

type AgentKind string

const (
	AgentKindAutoReply    AgentKind = "autoreply"
	AgentKindAutoOutreach AgentKind = "auto_outreach"
)

// AgentKinds returns every known agent kind in display order.
func AgentKinds() []AgentKind {
	return []AgentKind{AgentKindAutoReply, AgentKindAutoOutreach}
}

// ParseAgentKind validates a wire-level agent kind.
func ParseAgentKind(s string) (AgentKind, error) {
	for _, k := range AgentKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("domain.ParseAgentKind(%q): %w", s, ErrInvalidKind)
}

type AgentStatus string

const (
	AgentStatusEnabled  AgentStatus = "enabled"
	AgentStatusPaused   AgentStatus = "paused"
	AgentStatusDisabled AgentStatus = "disabled"
	AgentStatusError    AgentStatus = "error"
)

// ValidTransition checks if an agent state transition is allowed.
// Allowed: disabled/error->enabled (start), enabled->paused, paused->enabled,
// any->disabled (stop), enabled/paused->error (loop fault).
func (s AgentStatus) ValidTransition(to AgentStatus) bool {
	switch to {
	case AgentStatusEnabled:
		return s == AgentStatusDisabled || s == AgentStatusError || s == AgentStatusPaused
	case AgentStatusPaused:
		return s == AgentStatusEnabled
	case AgentStatusDisabled:
		return true
	case AgentStatusError:
		return s == AgentStatusEnabled || s == AgentStatusPaused || s == AgentStatusDisabled
	default:
		return false
	}
}

// Active reports whether the agent owns a running loop.
func (s AgentStatus) Active() bool {
	return s == AgentStatusEnabled || s == AgentStatusPaused
}

// AgentInfo is a point-in-time snapshot of one agent.
type AgentInfo struct {
	Kind      AgentKind      `json:"kind"`
	Status    AgentStatus    `json:"status"`
	LastError string         `json:"last_error,omitempty"`
	Stats     map[string]any `json:"stats,omitempty"`
}
