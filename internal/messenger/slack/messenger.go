package slack

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/wabot/internal/messenger"
)

// SlackAPI abstracts the subset of the Slack client used by SlackMessenger.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackMessenger implements messenger.Messenger for Slack.
type SlackMessenger struct {
	api SlackAPI
}

var _ messenger.Messenger = (*SlackMessenger)(nil) //nolint:gochecknoglobals // compile-time check

// NewSlackMessenger creates a SlackMessenger with the given API client.
func NewSlackMessenger(api SlackAPI) *SlackMessenger {
	return &SlackMessenger{api: api}
}

// NewFromToken builds a SlackMessenger backed by a bot token.
func NewFromToken(botToken string) *SlackMessenger {
	return NewSlackMessenger(slacklib.New(botToken))
}

// SendAlert posts the alert as Block Kit with a plain-text fallback and
// returns the message timestamp as MessageID.
func (m *SlackMessenger) SendAlert(ctx context.Context, channelID string, alert messenger.Alert) (messenger.MessageID, error) {
	_, ts, err := m.api.PostMessageContext(ctx, channelID,
		slacklib.MsgOptionText(FallbackText(alert), false),
		slacklib.MsgOptionBlocks(BuildAlertBlocks(alert)...),
	)
	if err != nil {
		return "", fmt.Errorf("slack.SlackMessenger.SendAlert: %w", err)
	}

	return messenger.MessageID(ts), nil
}

// Platform returns the messenger platform identifier.
func (m *SlackMessenger) Platform() string {
	return "slack"
}
