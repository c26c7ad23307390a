// Package messenger abstracts the chat platforms operator alerts are posted to.
package messenger

import "context"

// MessageID uniquely identifies a message within a messenger platform.
type MessageID string

// Alert is one operator notification about a session.
type Alert struct {
	Title     string
	Text      string
	SessionID string
	Agent     string
	Severity  Severity
}

// Severity ranks alerts for display.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Messenger posts alerts to a chat platform.
type Messenger interface {
	// SendAlert posts an alert to a channel and returns its platform message ID.
	SendAlert(ctx context.Context, channelID string, alert Alert) (MessageID, error)

	// Platform returns the messenger platform identifier (e.g. "slack").
	Platform() string
}
