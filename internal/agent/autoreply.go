package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/wabot/internal/automation"
	"github.com/gosuda/wabot/internal/domain"
	"github.com/gosuda/wabot/internal/events"
)

// DefaultReplyMessage is sent when no generated reply is available.
const DefaultReplyMessage = "Thanks for your message! We'll get back to you shortly."

const defaultReplySystem = "You reply to WhatsApp messages on behalf of the account owner. " +
	"Answer the customer's latest message briefly and politely, in the language they wrote in."

// AutoReplyConfig configures the auto-reply behavior.
type AutoReplyConfig struct {
	ReplyDelay     Seconds  `json:"reply_delay"`
	CheckInterval  Seconds  `json:"check_interval"`
	ReplyMessage   string   `json:"reply_message"`
	Instruction    string   `json:"instruction"`
	UseAI          bool     `json:"use_ai"`
	TargetContacts []string `json:"target_contacts"`
	HistoryLimit   int      `json:"history_limit"`
}

func defaultAutoReplyConfig() AutoReplyConfig {
	return AutoReplyConfig{
		ReplyDelay:    2,
		CheckInterval: 5,
		ReplyMessage:  DefaultReplyMessage,
		UseAI:         true,
		HistoryLimit:  20,
	}
}

type trackedChat struct {
	name    string
	inbound int
}

// AutoReply answers unread chats, one owned chat at a time. The answered
// chat stays open and is re-read first on the next cycle; moving to another
// chat closes it.
type AutoReply struct {
	cfg AutoReplyConfig
	gen TextGenerator
	now func() time.Time

	mu          sync.Mutex
	tracked     *trackedChat
	replies     int
	fallbacks   int
	lastReplyAt time.Time
}

var _ Behavior = (*AutoReply)(nil)

// NewAutoReply is the Factory for domain.AgentKindAutoReply.
func NewAutoReply(config map[string]any, deps Deps) (Behavior, error) {
	cfg := defaultAutoReplyConfig()
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, fmt.Errorf("agent.NewAutoReply: %w", err)
	}
	return &AutoReply{cfg: cfg, gen: deps.Generator, now: deps.now}, nil
}

func (b *AutoReply) Kind() domain.AgentKind { return domain.AgentKindAutoReply }

// Config returns the effective configuration.
func (b *AutoReply) Config() AutoReplyConfig { return b.cfg }

func (b *AutoReply) Validate() error {
	switch {
	case strings.TrimSpace(b.cfg.ReplyMessage) == "":
		return fmt.Errorf("%w: reply_message must not be empty", domain.ErrPrecondition)
	case b.cfg.CheckInterval <= 0:
		return fmt.Errorf("%w: check_interval must be positive", domain.ErrPrecondition)
	case b.cfg.ReplyDelay < 0:
		return fmt.Errorf("%w: reply_delay must not be negative", domain.ErrPrecondition)
	case b.cfg.HistoryLimit < 1:
		return fmt.Errorf("%w: history_limit must be at least 1", domain.ErrPrecondition)
	}
	return nil
}

func (b *AutoReply) RunCycle(ctx context.Context, rt *Runtime) (Outcome, error) {
	idle := Outcome{Wait: b.cfg.CheckInterval.Duration()}

	ref, found, err := b.nextCandidate(ctx, rt)
	if err == nil && found {
		err = b.answer(ctx, rt, ref)
	}
	switch {
	case err == nil:
		return idle, nil
	case ctx.Err() != nil, errors.Is(err, errNotRunning), isInfrastructure(err):
		return Outcome{}, err
	}

	log.Warn().Err(err).Str("session_id", rt.SessionID()).Str("chat", ref.Name).Msg("agent.AutoReply.RunCycle: chat skipped")
	msg := "Auto-reply check failed: " + err.Error()
	if ref.Name != "" {
		msg = "Auto-reply failed for " + ref.Name + ": " + err.Error()
	}
	rt.Record(events.KindError, msg, map[string]any{
		"chat":  ref.Name,
		"error": err.Error(),
	})
	b.untrack()
	return idle, nil
}

// nextCandidate picks the tracked chat when it has new inbound messages,
// otherwise the next unread chat, which it opens.
func (b *AutoReply) nextCandidate(ctx context.Context, rt *Runtime) (automation.ChatRef, bool, error) {
	tracked := b.trackedChat()

	var (
		ref   automation.ChatRef
		found bool
	)
	err := rt.Act(ctx, func(ctx context.Context, a Actions) error {
		if tracked != nil {
			fresh, err := trackedHasNews(ctx, a, *tracked)
			if err != nil {
				return err
			}
			if fresh {
				ref, found = automation.ChatRef{Name: tracked.name}, true
				return nil
			}
		}

		next, ok, err := b.findUnread(ctx, a)
		if err != nil || !ok {
			return err
		}

		if tracked != nil && tracked.name != next.Name {
			if err := a.CloseChat(ctx); err != nil {
				if automation.IsInfrastructure(err) {
					return err
				}
				log.Warn().Err(err).Str("chat", tracked.name).Msg("agent.AutoReply: close tracked chat")
			}
			b.untrack()
		}

		if err := a.SelectChat(ctx, next); err != nil {
			ref = next
			return err
		}
		ref, found = next, true
		return nil
	})
	return ref, found, err
}

func trackedHasNews(ctx context.Context, a Actions, tracked trackedChat) (bool, error) {
	current, open, err := a.CurrentChat(ctx)
	if err != nil {
		return false, err
	}
	if !open || current != tracked.name {
		return false, nil
	}
	t, err := a.ExtractTranscript(ctx, automation.ChatRef{Name: tracked.name})
	if err != nil {
		return false, err
	}
	return t.Inbound > tracked.inbound, nil
}

func (b *AutoReply) findUnread(ctx context.Context, a Actions) (automation.ChatRef, bool, error) {
	if len(b.cfg.TargetContacts) == 0 {
		return a.FindNextUnreadChat(ctx)
	}

	chats, err := a.ListChats(ctx)
	if err != nil {
		return automation.ChatRef{}, false, err
	}
	for _, c := range chats {
		if c.Unread > 0 && slices.Contains(b.cfg.TargetContacts, c.Name) {
			return c.Ref(), true, nil
		}
	}
	return automation.ChatRef{}, false, nil
}

func (b *AutoReply) answer(ctx context.Context, rt *Runtime, ref automation.ChatRef) error {
	rt.Record(events.KindLog, "New message in "+ref.Name, map[string]any{"chat": ref.Name})

	if err := rt.Sleep(ctx, b.cfg.ReplyDelay.Duration()); err != nil {
		return err
	}

	var transcript automation.Transcript
	err := rt.Act(ctx, func(ctx context.Context, a Actions) error {
		var err error
		transcript, err = a.ExtractTranscript(ctx, ref)
		return err
	})
	if err != nil {
		return err
	}

	reply, generated := b.compose(ctx, rt, transcript)

	err = rt.Act(ctx, func(ctx context.Context, a Actions) error {
		current, open, err := a.CurrentChat(ctx)
		if err != nil {
			return err
		}
		if !open || (current != "" && current != ref.Name) {
			return fmt.Errorf("chat %q is no longer open: %w", ref.Name, automation.ErrChatNotFound)
		}
		return a.SendText(ctx, reply)
	})
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.tracked = &trackedChat{name: ref.Name, inbound: transcript.Inbound}
	b.replies++
	if !generated {
		b.fallbacks++
	}
	b.lastReplyAt = b.now()
	b.mu.Unlock()

	payload := map[string]any{
		"event":     "message_sent",
		"chat":      ref.Name,
		"generated": generated,
	}
	if last, ok := transcript.LastInbound(); ok {
		payload["in_reply_to"] = last.Text
	}
	rt.Record(events.KindLog, "Replied to "+ref.Name, payload)
	return nil
}

// compose returns the reply text and whether it came from the generator.
func (b *AutoReply) compose(ctx context.Context, rt *Runtime, t automation.Transcript) (string, bool) {
	if !b.cfg.UseAI || b.gen == nil {
		return b.cfg.ReplyMessage, false
	}

	system := b.cfg.Instruction
	if strings.TrimSpace(system) == "" {
		system = defaultReplySystem
	}

	text, err := b.gen.Generate(ctx, system, formatTranscript(t, b.cfg.HistoryLimit))
	if err != nil || strings.TrimSpace(text) == "" {
		if err == nil {
			err = errors.New("empty reply")
		}
		log.Warn().Err(err).Str("session_id", rt.SessionID()).Str("chat", t.Chat).Msg("agent.AutoReply: reply generation failed, using fallback")
		rt.Record(events.KindLog, "Reply generation failed, sending fallback", map[string]any{
			"chat":  t.Chat,
			"error": err.Error(),
		})
		return b.cfg.ReplyMessage, false
	}
	return text, true
}

func formatTranscript(t automation.Transcript, limit int) string {
	msgs := t.Messages
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Conversation with %s:\n", t.Chat)
	for _, m := range msgs {
		who := "Me"
		if m.Inbound {
			who = "Customer"
		}
		fmt.Fprintf(&sb, "%s: %s\n", who, m.Text)
	}
	sb.WriteString("\nWrite the next reply.")
	return sb.String()
}

func (b *AutoReply) trackedChat() *trackedChat {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tracked == nil {
		return nil
	}
	c := *b.tracked
	return &c
}

func (b *AutoReply) untrack() {
	b.mu.Lock()
	b.tracked = nil
	b.mu.Unlock()
}

func (b *AutoReply) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tracked = nil
	b.replies = 0
	b.fallbacks = 0
	b.lastReplyAt = time.Time{}
}

func (b *AutoReply) Stats() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := map[string]any{
		"replies_sent":   b.replies,
		"fallback_sent":  b.fallbacks,
		"check_interval": float64(b.cfg.CheckInterval),
		"reply_delay":    float64(b.cfg.ReplyDelay),
	}
	if b.tracked != nil {
		stats["tracked_chat"] = b.tracked.name
	}
	if !b.lastReplyAt.IsZero() {
		stats["last_reply_at"] = b.lastReplyAt
	}
	return stats
}
