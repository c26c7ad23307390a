package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gosuda/wabot/internal/automation"
	"github.com/gosuda/wabot/internal/domain"
	"github.com/gosuda/wabot/internal/events"
)

// Manual browser actions. Each one holds the driver slot, so it never
// interleaves with an agent's UI work.

// OpenWhatsApp navigates the tab back to WhatsApp Web.
func (s *Session) OpenWhatsApp(ctx context.Context) error {
	err := s.withDriver(ctx, func(ctx context.Context, a *automation.Actions) error {
		return a.Open(ctx)
	})
	if err != nil {
		return fmt.Errorf("session.Session.OpenWhatsApp(%s): %w", s.id, err)
	}
	s.RecordEvent(events.KindAction, "Opened WhatsApp Web", map[string]any{"event": "navigate"})
	return nil
}

// Navigate loads an http(s) URL in the session tab.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("session.Session.Navigate: %q is not an http(s) URL: %w", rawURL, domain.ErrPrecondition)
	}

	err = s.withDriver(ctx, func(ctx context.Context, a *automation.Actions) error {
		return a.Navigate(ctx, u.String())
	})
	if err != nil {
		return fmt.Errorf("session.Session.Navigate(%s): %w", s.id, err)
	}
	s.RecordEvent(events.KindAction, "Navigated to "+u.String(), map[string]any{"event": "navigate", "url": u.String()})
	return nil
}

// Click clicks the first element matching selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	selector, err := checkSelector(selector)
	if err != nil {
		return err
	}
	err = s.withDriver(ctx, func(ctx context.Context, a *automation.Actions) error {
		return a.Click(ctx, selector)
	})
	if err != nil {
		return fmt.Errorf("session.Session.Click(%s): %w", s.id, err)
	}
	s.RecordEvent(events.KindLog, "Clicked "+selector, map[string]any{"event": "click", "selector": selector})
	return nil
}

// TypeText types text into the first element matching selector.
func (s *Session) TypeText(ctx context.Context, selector, text string) error {
	selector, err := checkSelector(selector)
	if err != nil {
		return err
	}
	err = s.withDriver(ctx, func(ctx context.Context, a *automation.Actions) error {
		return a.TypeText(ctx, selector, text)
	})
	if err != nil {
		return fmt.Errorf("session.Session.TypeText(%s): %w", s.id, err)
	}
	s.RecordEvent(events.KindLog, "Typed into "+selector, map[string]any{"event": "type", "selector": selector})
	return nil
}

// ExtractText returns the text of the first element matching selector.
func (s *Session) ExtractText(ctx context.Context, selector string) (string, error) {
	selector, err := checkSelector(selector)
	if err != nil {
		return "", err
	}
	var text string
	err = s.withDriver(ctx, func(ctx context.Context, a *automation.Actions) error {
		var err error
		text, err = a.ExtractText(ctx, selector)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("session.Session.ExtractText(%s): %w", s.id, err)
	}
	return text, nil
}

// ExtractAll returns the text of every element matching selector.
func (s *Session) ExtractAll(ctx context.Context, selector string) ([]string, error) {
	selector, err := checkSelector(selector)
	if err != nil {
		return nil, err
	}
	var texts []string
	err = s.withDriver(ctx, func(ctx context.Context, a *automation.Actions) error {
		var err error
		texts, err = a.ExtractAll(ctx, selector)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("session.Session.ExtractAll(%s): %w", s.id, err)
	}
	return texts, nil
}

// WaitForElement waits up to timeout for selector to match.
func (s *Session) WaitForElement(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	selector, err := checkSelector(selector)
	if err != nil {
		return false, err
	}
	if timeout <= 0 {
		return false, fmt.Errorf("session.Session.WaitForElement: timeout must be positive: %w", domain.ErrPrecondition)
	}
	var found bool
	err = s.withDriver(ctx, func(ctx context.Context, a *automation.Actions) error {
		var err error
		found, err = a.WaitForElement(ctx, selector, timeout)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("session.Session.WaitForElement(%s): %w", s.id, err)
	}
	return found, nil
}

func checkSelector(selector string) (string, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return "", fmt.Errorf("session: selector is required: %w", domain.ErrPrecondition)
	}
	return selector, nil
}
