// Package events holds the per-session event model: a bounded, strictly
// time-ordered log and the sinks that fan recorded events out of process.
package events

import "time"

// Kind categorizes session events.
type Kind string

const (
	KindStatus   Kind = "status"
	KindLog      Kind = "log"
	KindError    Kind = "error"
	KindAction   Kind = "action"
	KindMetadata Kind = "metadata"
	KindData     Kind = "data"
)

// UI actions carried by KindAction events.
const (
	ActionShowQR     = "SHOW_QR"
	ActionHideQR     = "HIDE_QR"
	ActionPromptUser = "PROMPT_USER"
)

// Event is one entry of a session's event log.
type Event struct {
	Seq       uint64         `json:"seq"`
	Time      time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Kind      Kind           `json:"type"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload,omitempty"`
}
