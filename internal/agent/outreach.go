package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/wabot/internal/automation"
	"github.com/gosuda/wabot/internal/domain"
	"github.com/gosuda/wabot/internal/events"
)

// OutreachConfig configures an outreach campaign.
type OutreachConfig struct {
	Contacts      []string `json:"contacts_list"`
	Template      string   `json:"outreach_message"`
	Instruction   string   `json:"ai_instruction"`
	MaxPerCycle   int      `json:"max_messages_per_cycle"`
	ContactDelay  Seconds  `json:"delay_between_messages"`
	CycleInterval Seconds  `json:"cycle_interval"`
	DailyLimit    int      `json:"daily_limit"`
}

func defaultOutreachConfig() OutreachConfig {
	return OutreachConfig{
		MaxPerCycle:   10,
		ContactDelay:  10,
		CycleInterval: 60,
		DailyLimit:    50,
	}
}

// Outreach messages each configured contact at most once. Contacts whose
// chat cannot be opened or whose send fails are marked failed and not
// retried; only confirmed sends count as contacted.
type Outreach struct {
	gen TextGenerator
	now func() time.Time

	mu          sync.Mutex
	cfg         OutreachConfig
	contacted   map[string]struct{}
	order       []string
	failed      map[string]string
	sentToday   int
	day         string
	totalSent   int
	limitLogged bool
}

var _ Behavior = (*Outreach)(nil)

// NewOutreach is the Factory for domain.AgentKindAutoOutreach.
func NewOutreach(config map[string]any, deps Deps) (Behavior, error) {
	cfg := defaultOutreachConfig()
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, fmt.Errorf("agent.NewOutreach: %w", err)
	}
	cfg.Contacts = dedupe(nil, cfg.Contacts)

	o := &Outreach{gen: deps.Generator, now: deps.now, cfg: cfg}
	o.resetLocked()
	return o, nil
}

func (o *Outreach) Kind() domain.AgentKind { return domain.AgentKindAutoOutreach }

// Config returns a copy of the effective configuration.
func (o *Outreach) Config() OutreachConfig {
	o.mu.Lock()
	defer o.mu.Unlock()
	cfg := o.cfg
	cfg.Contacts = append([]string(nil), o.cfg.Contacts...)
	return cfg
}

func (o *Outreach) Validate() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch {
	case len(o.cfg.Contacts) == 0:
		return fmt.Errorf("%w: contacts_list must not be empty", domain.ErrPrecondition)
	case strings.TrimSpace(o.cfg.Template) == "":
		return fmt.Errorf("%w: outreach_message must not be empty", domain.ErrPrecondition)
	case o.cfg.MaxPerCycle < 1:
		return fmt.Errorf("%w: max_messages_per_cycle must be at least 1", domain.ErrPrecondition)
	case o.cfg.DailyLimit < 1:
		return fmt.Errorf("%w: daily_limit must be at least 1", domain.ErrPrecondition)
	case o.cfg.ContactDelay < 0, o.cfg.CycleInterval < 0:
		return fmt.Errorf("%w: delays must not be negative", domain.ErrPrecondition)
	}
	return nil
}

// AddContacts appends contacts not already in the campaign and returns how
// many were added.
func (o *Outreach) AddContacts(contacts []string) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	before := len(o.cfg.Contacts)
	o.cfg.Contacts = dedupe(o.cfg.Contacts, contacts)
	return len(o.cfg.Contacts) - before
}

func (o *Outreach) RunCycle(ctx context.Context, rt *Runtime) (Outcome, error) {
	interval := Outcome{Wait: o.cfg.CycleInterval.Duration()}

	pending := o.pending()
	if len(pending) == 0 {
		stats := o.Stats()
		rt.Record(events.KindStatus, "Outreach campaign complete", map[string]any{
			"event":     "campaign_complete",
			"contacted": stats["contacted"],
			"failed":    stats["failed"],
		})
		return Outcome{Done: true}, nil
	}

	attempts := 0
	for _, contact := range pending {
		if attempts >= o.cfg.MaxPerCycle {
			break
		}
		if o.dailyLimitReached(rt) {
			break
		}
		attempts++

		if err := o.reach(ctx, rt, contact); err != nil {
			return Outcome{}, err
		}
	}

	return interval, nil
}

// reach opens, composes and sends to one contact. It returns an error only
// when the loop must end.
func (o *Outreach) reach(ctx context.Context, rt *Runtime, contact string) error {
	var res automation.OpenResult
	err := rt.Act(ctx, func(ctx context.Context, a Actions) error {
		var err error
		res, err = a.OpenChat(ctx, contact)
		return err
	})
	if err != nil {
		return o.contactFailed(ctx, rt, contact, err)
	}
	if res != automation.OpenOpened {
		o.markFailed(contact, string(res))
		rt.Record(events.KindLog, "Could not open chat with "+contact, map[string]any{
			"contact": contact,
			"result":  string(res),
		})
		return nil
	}

	if err := rt.Sleep(ctx, o.cfg.ContactDelay.Duration()); err != nil {
		return err
	}

	text := o.compose(ctx, rt, contact)

	err = rt.Act(ctx, func(ctx context.Context, a Actions) error {
		if err := a.SendText(ctx, text); err != nil {
			return err
		}
		if err := a.CloseChat(ctx); err != nil {
			log.Warn().Err(err).Str("contact", contact).Msg("agent.Outreach: close chat after send")
		}
		return nil
	})
	if err != nil {
		return o.contactFailed(ctx, rt, contact, err)
	}

	o.markSent(contact)
	rt.Record(events.KindLog, "Outreach message sent to "+contact, map[string]any{
		"event":   "message_sent",
		"contact": contact,
	})
	return nil
}

func (o *Outreach) contactFailed(ctx context.Context, rt *Runtime, contact string, err error) error {
	if ctx.Err() != nil || errors.Is(err, errNotRunning) || isInfrastructure(err) {
		return err
	}
	o.markFailed(contact, err.Error())
	log.Warn().Err(err).Str("session_id", rt.SessionID()).Str("contact", contact).Msg("agent.Outreach: contact failed")
	rt.Record(events.KindError, "Outreach to "+contact+" failed: "+err.Error(), map[string]any{
		"contact": contact,
		"error":   err.Error(),
	})
	return nil
}

// compose substitutes {contact} and {name} in the template and, when an
// instruction is set, asks the generator to personalize it. Generator
// failures fall back to the substituted template.
func (o *Outreach) compose(ctx context.Context, rt *Runtime, contact string) string {
	o.mu.Lock()
	tmpl, instruction := o.cfg.Template, o.cfg.Instruction
	o.mu.Unlock()

	base := strings.NewReplacer("{contact}", contact, "{name}", contact).Replace(tmpl)
	if strings.TrimSpace(instruction) == "" || o.gen == nil {
		return base
	}

	prompt := fmt.Sprintf("Recipient: %s\nMessage template:\n%s\n\nRewrite the template for this recipient. Reply with the message only.", contact, base)
	text, err := o.gen.Generate(ctx, instruction, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		if err == nil {
			err = errors.New("empty message")
		}
		log.Warn().Err(err).Str("session_id", rt.SessionID()).Str("contact", contact).Msg("agent.Outreach: personalization failed, using template")
		return base
	}
	return text
}

func (o *Outreach) pending() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []string
	for _, c := range o.cfg.Contacts {
		if _, ok := o.contacted[c]; ok {
			continue
		}
		if _, ok := o.failed[c]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// dailyLimitReached rolls the counter on a new local day and reports
// whether today's limit is used up.
func (o *Outreach) dailyLimitReached(rt *Runtime) bool {
	o.mu.Lock()
	o.rollDayLocked()
	reached := o.sentToday >= o.cfg.DailyLimit
	first := reached && !o.limitLogged
	if first {
		o.limitLogged = true
	}
	count := o.sentToday
	o.mu.Unlock()

	if first {
		rt.Record(events.KindLog, "Daily outreach limit reached", map[string]any{
			"event": "daily_limit_reached",
			"count": count,
		})
	}
	return reached
}

func (o *Outreach) rollDayLocked() {
	today := o.now().Format(time.DateOnly)
	if today != o.day {
		o.day = today
		o.sentToday = 0
		o.limitLogged = false
	}
}

func (o *Outreach) markSent(contact string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.rollDayLocked()
	if _, ok := o.contacted[contact]; !ok {
		o.contacted[contact] = struct{}{}
		o.order = append(o.order, contact)
	}
	o.sentToday++
	o.totalSent++
}

func (o *Outreach) markFailed(contact, reason string) {
	o.mu.Lock()
	o.failed[contact] = reason
	o.mu.Unlock()
}

func (o *Outreach) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetLocked()
}

func (o *Outreach) resetLocked() {
	o.contacted = make(map[string]struct{})
	o.order = nil
	o.failed = make(map[string]string)
	o.sentToday = 0
	o.totalSent = 0
	o.day = ""
	o.limitLogged = false
}

func (o *Outreach) Stats() map[string]any {
	o.mu.Lock()
	defer o.mu.Unlock()

	failed := make(map[string]string, len(o.failed))
	for k, v := range o.failed {
		failed[k] = v
	}
	remaining := len(o.cfg.Contacts) - len(o.contacted) - len(o.failed)

	return map[string]any{
		"messages_sent_today": o.sentToday,
		"daily_limit":         o.cfg.DailyLimit,
		"total_contacts":      len(o.cfg.Contacts),
		"contacted":           len(o.contacted),
		"contacted_list":      append([]string(nil), o.order...),
		"failed":              len(o.failed),
		"failed_contacts":     failed,
		"remaining":           max(remaining, 0),
		"total_sent":          o.totalSent,
	}
}

func dedupe(dst, add []string) []string {
	seen := make(map[string]struct{}, len(dst)+len(add))
	for _, c := range dst {
		seen[c] = struct{}{}
	}
	for _, c := range add {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		dst = append(dst, c)
	}
	return dst
}
