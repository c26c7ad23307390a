package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/wabot/internal/automation"
	"github.com/gosuda/wabot/internal/domain"
	"github.com/gosuda/wabot/internal/events"
)

// LoginState reports whether the WhatsApp account is logged in.
func (s *Session) LoginState(ctx context.Context) (automation.LoginState, error) {
	var state automation.LoginState
	err := s.withDriver(ctx, func(ctx context.Context, a *automation.Actions) error {
		var err error
		state, err = a.DetectLoginState(ctx)
		return err
	})
	if err != nil {
		return automation.LoginUnknown, fmt.Errorf("session.Session.LoginState(%s): %w", s.id, err)
	}
	return state, nil
}

// QRCode returns the login QR code as a PNG data URL and starts watching
// for the login to complete. It fails with domain.ErrNotLoggedOut unless
// the account is logged out.
func (s *Session) QRCode(ctx context.Context) (string, error) {
	var qr string
	err := s.withDriver(ctx, func(ctx context.Context, a *automation.Actions) error {
		state, err := a.DetectLoginState(ctx)
		if err != nil {
			return err
		}
		if state != automation.LoginLoggedOut {
			return fmt.Errorf("login state %s: %w", state, domain.ErrNotLoggedOut)
		}
		qr, err = a.QRCode(ctx)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("session.Session.QRCode(%s): %w", s.id, err)
	}

	s.RecordEvent(events.KindAction, "Scan the QR code to log in", map[string]any{
		"action_type": events.ActionShowQR,
		"qr":          qr,
	})
	s.startLoginWatch()
	return qr, nil
}

// startLoginWatch polls the login state until the account is logged in or
// the watch times out. At most one watcher runs per session.
func (s *Session) startLoginWatch() {
	s.mu.Lock()
	if s.watchDone != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.LoginWatchTimeout)
	done := make(chan struct{})
	s.watchStop, s.watchDone = cancel, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		defer func() {
			s.mu.Lock()
			if s.watchDone == done {
				s.watchStop, s.watchDone = nil, nil
			}
			s.mu.Unlock()
		}()
		s.watchLogin(ctx)
	}()
}

func (s *Session) watchLogin(ctx context.Context) {
	logger := log.With().Str("session_id", s.id).Logger()
	ticker := time.NewTicker(s.opts.LoginPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				s.RecordEvent(events.KindLog, "Stopped waiting for login", map[string]any{"event": "login_watch_timeout"})
				logger.Info().Msg("session.Session.watchLogin: timed out")
			}
			return
		case <-ticker.C:
		}

		state, err := s.LoginState(ctx)
		switch {
		case errors.Is(err, domain.ErrNoDriver), automation.IsInfrastructure(err):
			logger.Info().Err(err).Msg("session.Session.watchLogin: browser gone")
			return
		case err != nil:
			logger.Debug().Err(err).Msg("session.Session.watchLogin: login check failed")
			continue
		case state == automation.LoginLoggedIn:
			s.RecordEvent(events.KindAction, "Logged in", map[string]any{"action_type": events.ActionHideQR})
			s.RecordEvent(events.KindStatus, "Login confirmed", map[string]any{"event": "login_confirmed"})
			logger.Info().Msg("session.Session.watchLogin: login confirmed")
			return
		}
	}
}

// stopLoginWatch cancels the watcher and waits for it to exit.
func (s *Session) stopLoginWatch() {
	s.mu.Lock()
	cancel, done := s.watchStop, s.watchDone
	s.watchStop, s.watchDone = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// SendMessage opens a chat with contact, sends text and closes the chat, as
// one exclusive browser operation.
func (s *Session) SendMessage(ctx context.Context, contact, text string) error {
	contact, text = strings.TrimSpace(contact), strings.TrimSpace(text)
	if contact == "" || text == "" {
		return fmt.Errorf("session.Session.SendMessage: contact and text are required: %w", domain.ErrPrecondition)
	}

	err := s.withDriver(ctx, func(ctx context.Context, a *automation.Actions) error {
		res, err := a.OpenChat(ctx, contact)
		if err != nil {
			return err
		}
		if res != automation.OpenOpened {
			return fmt.Errorf("open chat with %s: %s: %w", contact, res, domain.ErrPrecondition)
		}
		if err := a.SendText(ctx, text); err != nil {
			return err
		}
		if err := a.CloseChat(ctx); err != nil {
			log.Warn().Err(err).Str("session_id", s.id).Str("contact", contact).Msg("session.Session.SendMessage: close chat")
		}
		return nil
	})
	if err != nil {
		s.RecordEvent(events.KindError, "Failed to send message to "+contact+": "+err.Error(), map[string]any{
			"contact": contact,
			"error":   err.Error(),
		})
		return fmt.Errorf("session.Session.SendMessage(%s): %w", s.id, err)
	}

	s.RecordEvent(events.KindLog, "Message sent to "+contact, map[string]any{"event": "message_sent", "contact": contact})
	return nil
}

// ListChats returns the visible chat list.
func (s *Session) ListChats(ctx context.Context) ([]automation.ChatSummary, error) {
	var chats []automation.ChatSummary
	err := s.withDriver(ctx, func(ctx context.Context, a *automation.Actions) error {
		var err error
		chats, err = a.ListChats(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("session.Session.ListChats(%s): %w", s.id, err)
	}
	return chats, nil
}
