package automation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gosuda/wabot/internal/events"
)

// Config bounds every action. Zero durations take the defaults from
// DefaultConfig, except SettleDelay where zero means no pause.
type Config struct {
	WhatsAppURL         string
	ActionTimeout       time.Duration
	NavigateTimeout     time.Duration
	PollInterval        time.Duration
	CheckTimeout        time.Duration
	OpenTimeout         time.Duration
	InvalidCheckTimeout time.Duration
	SettleDelay         time.Duration
	CloseAttempts       int
}

// DefaultConfig returns the timings WhatsApp Web tolerates in practice.
func DefaultConfig() Config {
	return Config{
		WhatsAppURL:         "https://web.whatsapp.com/",
		ActionTimeout:       10 * time.Second,
		NavigateTimeout:     30 * time.Second,
		PollInterval:        250 * time.Millisecond,
		CheckTimeout:        time.Second,
		OpenTimeout:         8 * time.Second,
		InvalidCheckTimeout: 3 * time.Second,
		SettleDelay:         time.Second,
		CloseAttempts:       2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WhatsAppURL == "" {
		c.WhatsAppURL = d.WhatsAppURL
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = d.ActionTimeout
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = d.NavigateTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = d.CheckTimeout
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	if c.InvalidCheckTimeout <= 0 {
		c.InvalidCheckTimeout = d.InvalidCheckTimeout
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	if c.CloseAttempts < 1 {
		c.CloseAttempts = d.CloseAttempts
	}
	return c
}

// Recorder receives user-visible events produced while acting.
type Recorder func(kind events.Kind, message string, payload map[string]any)

// Actions implements WhatsApp Web operations on top of a Surface.
// Actions does not serialize callers; the owner of the Surface must.
type Actions struct {
	surface Surface
	cfg     Config
	record  Recorder
}

// New creates Actions over s. rec may be nil.
func New(s Surface, cfg Config, rec Recorder) *Actions {
	if rec == nil {
		rec = func(events.Kind, string, map[string]any) {}
	}
	return &Actions{surface: s, cfg: cfg.withDefaults(), record: rec}
}

// Surface returns the underlying surface.
func (a *Actions) Surface() Surface { return a.surface }

// Open navigates to WhatsApp Web.
func (a *Actions) Open(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.NavigateTimeout)
	defer cancel()

	if err := a.surface.Navigate(ctx, a.cfg.WhatsAppURL); err != nil {
		return fmt.Errorf("automation.Actions.Open: %w", err)
	}
	return nil
}

// DetectLoginState looks for the logged-in chrome or the QR canvas.
func (a *Actions) DetectLoginState(ctx context.Context) (LoginState, error) {
	sel, err := a.waitFor(ctx, a.cfg.CheckTimeout, selLoggedIn, selQRCanvas)
	switch {
	case errors.Is(err, ErrTimeout):
		return LoginUnknown, nil
	case err != nil:
		return LoginUnknown, fmt.Errorf("automation.Actions.DetectLoginState: %w", err)
	case sel == selLoggedIn:
		return LoginLoggedIn, nil
	default:
		return LoginLoggedOut, nil
	}
}

// QRCode returns the login QR code as a PNG data URL.
func (a *Actions) QRCode(ctx context.Context) (string, error) {
	if _, err := a.waitFor(ctx, a.cfg.ActionTimeout, selQRCanvas); err != nil {
		return "", fmt.Errorf("automation.Actions.QRCode: %w", err)
	}

	var data string
	if err := a.eval(ctx, &data, scriptQRData, selQRCanvas); err != nil {
		return "", fmt.Errorf("automation.Actions.QRCode: %w", err)
	}
	if data == "" {
		return "", fmt.Errorf("automation.Actions.QRCode: %w", ErrElementNotFound)
	}
	return data, nil
}

// OpenChat opens a chat with target. Phone numbers go through a send link,
// anything else is matched against chat titles in the chat list.
func (a *Actions) OpenChat(ctx context.Context, target string) (OpenResult, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return OpenInvalidTarget, nil
	}

	if phone := normalizePhone(target); phone != "" {
		return a.openByLink(ctx, target, phone)
	}
	return a.openByName(ctx, target)
}

func (a *Actions) openByLink(ctx context.Context, target, phone string) (OpenResult, error) {
	link := sendLinkBase + url.QueryEscape(phone)
	a.record(events.KindStatus, "Opening chat with "+target, map[string]any{"url": link})

	if err := a.eval(ctx, nil, scriptOpenLink, link); err != nil {
		return OpenTimeout, fmt.Errorf("automation.Actions.OpenChat: inject link: %w", err)
	}
	if err := sleepCtx(ctx, a.cfg.SettleDelay); err != nil {
		return OpenTimeout, fmt.Errorf("automation.Actions.OpenChat: %w", err)
	}

	sel, err := a.waitFor(ctx, a.cfg.OpenTimeout, selComposer, selInvalid)
	if errors.Is(err, ErrTimeout) {
		sel, err = a.waitFor(ctx, a.cfg.InvalidCheckTimeout, selInvalid)
	}
	switch {
	case errors.Is(err, ErrTimeout):
		a.record(events.KindStatus, "Chat not found or still loading", map[string]any{"target": target})
		return OpenTimeout, nil
	case err != nil:
		return OpenTimeout, fmt.Errorf("automation.Actions.OpenChat: %w", err)
	case sel == selInvalid:
		return a.rejectInvalid(ctx, target)
	}

	a.record(events.KindStatus, "Chat opened with "+target, nil)
	return OpenOpened, nil
}

func (a *Actions) rejectInvalid(ctx context.Context, target string) (OpenResult, error) {
	var dismissed bool
	if err := a.eval(ctx, &dismissed, scriptDismissInvalid, selInvalid); err != nil && IsInfrastructure(err) {
		return OpenInvalidTarget, fmt.Errorf("automation.Actions.OpenChat: dismiss dialog: %w", err)
	}

	a.record(events.KindStatus, target+" is not on WhatsApp", nil)
	a.record(events.KindAction, "The number "+target+" is not on WhatsApp.", map[string]any{
		"action_type": events.ActionPromptUser,
		"target":      target,
	})
	return OpenInvalidTarget, nil
}

func (a *Actions) openByName(ctx context.Context, name string) (OpenResult, error) {
	err := a.SelectChat(ctx, ChatRef{Name: name})
	switch {
	case errors.Is(err, ErrChatNotFound):
		a.record(events.KindStatus, "No chat named "+name, nil)
		return OpenInvalidTarget, nil
	case errors.Is(err, ErrTimeout):
		return OpenTimeout, nil
	case err != nil:
		return OpenTimeout, fmt.Errorf("automation.Actions.OpenChat: %w", err)
	}

	a.record(events.KindStatus, "Chat opened with "+name, nil)
	return OpenOpened, nil
}

// ListChats returns the visible rows of the chat list.
func (a *Actions) ListChats(ctx context.Context) ([]ChatSummary, error) {
	var chats []ChatSummary
	if err := a.eval(ctx, &chats, scriptChatList, selChatPane); err != nil {
		return nil, fmt.Errorf("automation.Actions.ListChats: %w", err)
	}
	if chats == nil {
		chats = []ChatSummary{}
	}
	return chats, nil
}

// FindNextUnreadChat returns the topmost chat with unread messages.
func (a *Actions) FindNextUnreadChat(ctx context.Context) (ChatRef, bool, error) {
	chats, err := a.ListChats(ctx)
	if err != nil {
		return ChatRef{}, false, fmt.Errorf("automation.Actions.FindNextUnreadChat: %w", err)
	}
	for _, c := range chats {
		if c.Unread > 0 {
			return c.Ref(), true, nil
		}
	}
	return ChatRef{}, false, nil
}

// SelectChat clicks the chat list row titled ref.Name and waits for the composer.
func (a *Actions) SelectChat(ctx context.Context, ref ChatRef) error {
	var clicked bool
	if err := a.eval(ctx, &clicked, scriptSelectChat, selChatPane, ref.Name); err != nil {
		return fmt.Errorf("automation.Actions.SelectChat: %w", err)
	}
	if !clicked {
		return fmt.Errorf("automation.Actions.SelectChat: %q: %w", ref.Name, ErrChatNotFound)
	}
	if _, err := a.waitFor(ctx, a.cfg.ActionTimeout, selComposer); err != nil {
		return fmt.Errorf("automation.Actions.SelectChat: %w", err)
	}
	return nil
}

// CurrentChat returns the title of the open chat, if one is open.
func (a *Actions) CurrentChat(ctx context.Context) (string, bool, error) {
	open, err := a.exists(ctx, selComposer)
	if err != nil {
		return "", false, fmt.Errorf("automation.Actions.CurrentChat: %w", err)
	}
	if !open {
		return "", false, nil
	}

	tctx, cancel := context.WithTimeout(ctx, a.cfg.ActionTimeout)
	defer cancel()
	title, err := a.surface.Text(tctx, selChatTitle)
	if err != nil {
		if IsInfrastructure(err) {
			return "", false, fmt.Errorf("automation.Actions.CurrentChat: %w", err)
		}
		return "", true, nil
	}
	return strings.TrimSpace(title), true, nil
}

// ExtractTranscript reads the visible history of the open chat. When
// ref.Name is set it must match the open chat.
func (a *Actions) ExtractTranscript(ctx context.Context, ref ChatRef) (Transcript, error) {
	current, open, err := a.CurrentChat(ctx)
	if err != nil {
		return Transcript{}, fmt.Errorf("automation.Actions.ExtractTranscript: %w", err)
	}
	if !open || (ref.Name != "" && current != "" && current != ref.Name) {
		return Transcript{}, fmt.Errorf("automation.Actions.ExtractTranscript: %q: %w", ref.Name, ErrChatNotFound)
	}

	var msgs []Message
	if err := a.eval(ctx, &msgs, scriptTranscript); err != nil {
		return Transcript{}, fmt.Errorf("automation.Actions.ExtractTranscript: %w", err)
	}

	t := Transcript{Chat: current, Messages: msgs}
	if t.Chat == "" {
		t.Chat = ref.Name
	}
	if t.Messages == nil {
		t.Messages = []Message{}
	}
	for _, m := range t.Messages {
		if m.Inbound {
			t.Inbound++
		} else {
			t.Outbound++
		}
	}
	return t, nil
}

// SendText types text into the open chat and sends it with Enter, falling
// back to the send button when the composer is not cleared.
func (a *Actions) SendText(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("automation.Actions.SendText: %w: empty message", ErrSendFailed)
	}

	if _, err := a.waitFor(ctx, a.cfg.ActionTimeout, selComposer); err != nil {
		if IsInfrastructure(err) {
			return fmt.Errorf("automation.Actions.SendText: %w", err)
		}
		return fmt.Errorf("automation.Actions.SendText: %w: composer not found", ErrSendFailed)
	}

	if err := a.withTimeout(ctx, func(ctx context.Context) error {
		return a.surface.Type(ctx, selComposer, text)
	}); err != nil {
		if IsInfrastructure(err) {
			return fmt.Errorf("automation.Actions.SendText: %w", err)
		}
		return fmt.Errorf("automation.Actions.SendText: %w: type: %v", ErrSendFailed, err)
	}

	strategies := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"enter", func(ctx context.Context) error { return a.surface.Press(ctx, KeyEnter) }},
		{"button", func(ctx context.Context) error { return a.surface.Click(ctx, selSendButton) }},
	}

	var lastErr error
	for _, s := range strategies {
		if err := a.withTimeout(ctx, s.fn); err != nil {
			if IsInfrastructure(err) {
				return fmt.Errorf("automation.Actions.SendText: %w", err)
			}
			lastErr = fmt.Errorf("%s: %w", s.name, err)
			continue
		}
		sent, err := a.composerCleared(ctx)
		if err != nil {
			return fmt.Errorf("automation.Actions.SendText: %w", err)
		}
		if sent {
			a.record(events.KindAction, "Message sent", map[string]any{"type": "send_message", "state": "sent", "via": s.name})
			return nil
		}
		lastErr = fmt.Errorf("%s: message still in composer", s.name)
	}

	a.record(events.KindError, "Failed to send message", map[string]any{"action": "send_message", "error": lastErr.Error()})
	return fmt.Errorf("automation.Actions.SendText: %w: %v", ErrSendFailed, lastErr)
}

func (a *Actions) composerCleared(ctx context.Context) (bool, error) {
	err := a.waitUntil(ctx, a.cfg.CheckTimeout, func(ctx context.Context) (bool, error) {
		var empty bool
		if err := a.eval(ctx, &empty, scriptComposerEmpty, selComposer); err != nil {
			return false, err
		}
		return empty, nil
	})
	if errors.Is(err, ErrTimeout) {
		return false, nil
	}
	return err == nil, err
}

// CloseChat closes the open chat, alternating between the chat context menu
// and Escape for a bounded number of rounds. Closing with no chat open succeeds.
func (a *Actions) CloseChat(ctx context.Context) error {
	open, err := a.exists(ctx, selComposer)
	if err != nil {
		return fmt.Errorf("automation.Actions.CloseChat: %w", err)
	}
	if !open {
		return nil
	}

	strategies := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"context_menu", a.closeViaMenu},
		{"escape", func(ctx context.Context) error { return a.surface.Press(ctx, KeyEscape) }},
	}

	for attempt := 1; attempt <= a.cfg.CloseAttempts; attempt++ {
		for _, s := range strategies {
			if err := a.withTimeout(ctx, s.fn); err != nil {
				if IsInfrastructure(err) || ctx.Err() != nil {
					return fmt.Errorf("automation.Actions.CloseChat: %w", err)
				}
				continue
			}
			err := a.waitUntil(ctx, a.cfg.CheckTimeout, func(ctx context.Context) (bool, error) {
				still, err := a.exists(ctx, selComposer)
				return !still, err
			})
			if err == nil {
				a.record(events.KindLog, "Chat closed", map[string]any{"action": "close_chat", "state": "closed", "via": s.name})
				return nil
			}
			if !errors.Is(err, ErrTimeout) {
				return fmt.Errorf("automation.Actions.CloseChat: %w", err)
			}
		}
	}

	a.record(events.KindError, "Failed to close chat", map[string]any{"action": "close_chat"})
	return fmt.Errorf("automation.Actions.CloseChat: %w", ErrCloseFailed)
}

func (a *Actions) closeViaMenu(ctx context.Context) error {
	if err := a.surface.ContextClick(ctx, selComposer, 0, -100); err != nil {
		return err
	}
	if err := sleepCtx(ctx, a.cfg.SettleDelay); err != nil {
		return err
	}
	keys := make([]Key, 0, 6)
	for range 6 {
		keys = append(keys, KeyArrowDown)
	}
	if err := a.surface.Press(ctx, keys...); err != nil {
		return err
	}
	if err := sleepCtx(ctx, a.cfg.SettleDelay); err != nil {
		return err
	}
	return a.surface.Press(ctx, KeyEnter)
}

// --- helpers ---

func (a *Actions) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ActionTimeout)
	defer cancel()
	return fn(ctx)
}

func (a *Actions) exists(ctx context.Context, selector string) (bool, error) {
	var ok bool
	err := a.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		ok, err = a.surface.Exists(ctx, selector)
		return err
	})
	return ok, err
}

func (a *Actions) eval(ctx context.Context, out any, script Script, args ...any) error {
	return a.withTimeout(ctx, func(ctx context.Context) error {
		return a.surface.Eval(ctx, out, script, args...)
	})
}

// waitFor polls until one of selectors matches and returns it. Selectors are
// checked in order on every poll.
func (a *Actions) waitFor(ctx context.Context, timeout time.Duration, selectors ...string) (string, error) {
	var matched string
	err := a.waitUntil(ctx, timeout, func(ctx context.Context) (bool, error) {
		for _, sel := range selectors {
			ok, err := a.exists(ctx, sel)
			if err != nil {
				return false, err
			}
			if ok {
				matched = sel
				return true, nil
			}
		}
		return false, nil
	})
	return matched, err
}

// waitUntil polls cond until it holds, returns an infrastructure error, or
// timeout elapses. Non-infrastructure errors from cond count as "not yet".
func (a *Actions) waitUntil(ctx context.Context, timeout time.Duration, cond func(ctx context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := cond(ctx)
		if err != nil && (IsInfrastructure(err) || ctx.Err() != nil) {
			return err
		}
		if err == nil && ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
		if err := sleepCtx(ctx, min(a.cfg.PollInterval, time.Until(deadline))); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// normalizePhone returns the digits of a phone-number-like target, or "" when
// target is not a phone number.
func normalizePhone(target string) string {
	var b strings.Builder
	for i, r := range target {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ', r == '-', r == '(', r == ')', r == '.':
		default:
			return ""
		}
	}
	if b.Len() < 6 {
		return ""
	}
	return b.String()
}
