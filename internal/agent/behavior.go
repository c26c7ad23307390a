package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gosuda/wabot/internal/automation"
	"github.com/gosuda/wabot/internal/domain"
	"github.com/gosuda/wabot/internal/events"
)

// Actions is the slice of automation.Actions that behaviors drive.
type Actions interface {
	OpenChat(ctx context.Context, target string) (automation.OpenResult, error)
	ListChats(ctx context.Context) ([]automation.ChatSummary, error)
	FindNextUnreadChat(ctx context.Context) (automation.ChatRef, bool, error)
	SelectChat(ctx context.Context, ref automation.ChatRef) error
	CurrentChat(ctx context.Context) (string, bool, error)
	ExtractTranscript(ctx context.Context, ref automation.ChatRef) (automation.Transcript, error)
	SendText(ctx context.Context, text string) error
	CloseChat(ctx context.Context) error
}

var _ Actions = (*automation.Actions)(nil)

// Host is the session an agent runs in.
type Host interface {
	SessionID() string
	Record(kind events.Kind, message string, payload map[string]any)
	// WithActions runs fn with exclusive use of the session's browser. It
	// returns domain.ErrNoDriver when no browser is attached.
	WithActions(ctx context.Context, fn func(ctx context.Context, a Actions) error) error
}

// TextGenerator produces text from a system instruction and a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Outcome tells the loop what to do after a cycle.
type Outcome struct {
	// Wait is the pause before the next cycle.
	Wait time.Duration
	// Done ends the loop; the agent becomes Disabled with its state kept.
	Done bool
}

// Behavior is one agent kind. RunCycle returns an error only for faults that
// should stop the agent; per-item failures are recorded and swallowed.
type Behavior interface {
	Kind() domain.AgentKind
	Validate() error
	RunCycle(ctx context.Context, rt *Runtime) (Outcome, error)
	// Reset discards running state after an explicit stop.
	Reset()
	Stats() map[string]any
}

// Seconds is a JSON number of seconds.
type Seconds float64

// Duration converts to time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// isInfrastructure reports whether err means the browser is unusable.
func isInfrastructure(err error) bool {
	return errors.Is(err, domain.ErrNoDriver) || automation.IsInfrastructure(err)
}

func decodeConfig(raw map[string]any, into any) error {
	if len(raw) == 0 {
		return nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := json.Unmarshal(b, into); err != nil {
		return fmt.Errorf("%w: decode config: %v", domain.ErrPrecondition, err)
	}
	return nil
}
