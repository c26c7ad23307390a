// Package notify turns notable session events into operator alerts.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/wabot/internal/events"
	"github.com/gosuda/wabot/internal/messenger"
)

// ErrPlatformNotFound is returned when a messenger platform is not registered.
var ErrPlatformNotFound = errors.New("notify: platform not found") //nolint:gochecknoglobals // sentinel error

// MessengerRegistry maps platform names to Messenger implementations.
type MessengerRegistry interface {
	Get(platform string) (messenger.Messenger, bool)
}

// Route is one alert destination.
type Route struct {
	Platform string
	Channel  string
}

// Notifier posts alerts to every configured route.
type Notifier struct {
	messengers MessengerRegistry
	routes     []Route
}

// New creates a new Notifier with the given messenger registry and routes.
func New(messengers MessengerRegistry, routes ...Route) *Notifier {
	return &Notifier{
		messengers: messengers,
		routes:     routes,
	}
}

// Notify sends the alert to each route. Every route is attempted; the
// returned error joins the failures.
func (n *Notifier) Notify(ctx context.Context, alert messenger.Alert) error {
	if len(n.routes) == 0 {
		log.Debug().Str("title", alert.Title).Msg("notify: no routes configured")
		return nil
	}

	var errs []error
	for _, r := range n.routes {
		if err := n.NotifyVia(ctx, r.Platform, r.Channel, alert); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify.Notifier.Notify: %w", errors.Join(errs...))
	}
	return nil
}

// NotifyVia sends an alert using a specific platform and channel directly.
func (n *Notifier) NotifyVia(ctx context.Context, platform, channel string, alert messenger.Alert) error {
	msg, ok := n.messengers.Get(platform)
	if !ok {
		return fmt.Errorf("notify.Notifier.NotifyVia: platform %q: %w", platform, ErrPlatformNotFound)
	}

	if _, err := msg.SendAlert(ctx, channel, alert); err != nil {
		return fmt.Errorf("notify.Notifier.NotifyVia: send: %w", err)
	}

	return nil
}

// Sink returns an events sink that alerts on the events AlertFor selects.
// Close the sink to flush pending alerts.
func (n *Notifier) Sink(buffer int) *events.Async {
	return events.NewAsync("notify", buffer, 0, func(ctx context.Context, e events.Event) error {
		alert, ok := AlertFor(e)
		if !ok {
			return nil
		}
		return n.Notify(ctx, alert)
	})
}

// AlertFor maps a session event to an alert. Per-item failures are not
// alerted; an agent dropping to Error is.
func AlertFor(e events.Event) (messenger.Alert, bool) {
	agentName, _ := e.Payload["agent"].(string)
	alert := messenger.Alert{
		Text:      e.Message,
		SessionID: e.SessionID,
		Agent:     agentName,
		Severity:  messenger.SeverityInfo,
	}

	switch name, _ := e.Payload["event"].(string); name {
	case "agent_error", "agent_start_failed":
		alert.Title = "Agent error"
		alert.Severity = messenger.SeverityError
	case "campaign_complete":
		alert.Title = "Outreach campaign complete"
	case "daily_limit_reached":
		alert.Title = "Daily outreach limit reached"
	case "login_confirmed":
		alert.Title = "WhatsApp login confirmed"
	default:
		return messenger.Alert{}, false
	}
	return alert, true
}
