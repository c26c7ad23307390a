package slack

import (
	"fmt"
	"strings"

	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/wabot/internal/messenger"
)

// BuildAlertBlocks builds Slack Block Kit blocks for an alert: a header
// section with the title and text, and a context line naming the session
// and agent when known.
func BuildAlertBlocks(alert messenger.Alert) []slacklib.Block {
	text := fmt.Sprintf("%s *%s*", severityIcon(alert.Severity), alert.Title)
	if alert.Text != "" {
		text += "\n" + alert.Text
	}
	section := slacklib.NewSectionBlock(
		slacklib.NewTextBlockObject(slacklib.MarkdownType, text, false, false),
		nil,
		nil,
	)

	var fields []string
	if alert.SessionID != "" {
		fields = append(fields, fmt.Sprintf("*Session:* `%s`", alert.SessionID))
	}
	if alert.Agent != "" {
		fields = append(fields, fmt.Sprintf("*Agent:* `%s`", alert.Agent))
	}
	if len(fields) == 0 {
		return []slacklib.Block{section}
	}

	elements := make([]slacklib.MixedElement, 0, len(fields))
	for _, f := range fields {
		elements = append(elements, slacklib.NewTextBlockObject(slacklib.MarkdownType, f, false, false))
	}

	return []slacklib.Block{section, slacklib.NewContextBlock("alert_context", elements...)}
}

// FallbackText is the notification text shown where blocks are not rendered.
func FallbackText(alert messenger.Alert) string {
	parts := []string{alert.Title}
	if alert.Text != "" {
		parts = append(parts, alert.Text)
	}
	if alert.SessionID != "" {
		parts = append(parts, "session "+alert.SessionID)
	}
	return strings.Join(parts, " | ")
}

func severityIcon(s messenger.Severity) string {
	if s == messenger.SeverityError {
		return ":rotating_light:"
	}
	return ":information_source:"
}
