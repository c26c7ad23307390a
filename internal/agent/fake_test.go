package agent_test

import (
	"context"
	"sync"
	"time"

	"github.com/gosuda/wabot/internal/agent"
	"github.com/gosuda/wabot/internal/automation"
	"github.com/gosuda/wabot/internal/domain"
	"github.com/gosuda/wabot/internal/events"
)

const (
	testTick    = time.Millisecond
	waitFor     = 2 * time.Second
	pollEvery   = 5 * time.Millisecond
	quietPeriod = 150 * time.Millisecond
)

// --- fake host ---

type recorded struct {
	kind    events.Kind
	message string
	payload map[string]any
}

type fakeHost struct {
	actions agent.Actions // nil means no browser

	driver sync.Mutex

	mu     sync.Mutex
	events []recorded
}

func newFakeHost(a agent.Actions) *fakeHost { return &fakeHost{actions: a} }

func (h *fakeHost) SessionID() string { return "session-1" }

func (h *fakeHost) Record(kind events.Kind, message string, payload map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, recorded{kind: kind, message: message, payload: payload})
}

func (h *fakeHost) WithActions(ctx context.Context, fn func(ctx context.Context, a agent.Actions) error) error {
	if h.actions == nil {
		return domain.ErrNoDriver
	}
	h.driver.Lock()
	defer h.driver.Unlock()
	return fn(ctx, h.actions)
}

// hasEvent reports whether an event with payload["event"] == name was recorded.
func (h *fakeHost) hasEvent(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.events {
		if e.payload["event"] == name {
			return true
		}
	}
	return false
}

// payloadOf returns the payload of the first event named name.
func (h *fakeHost) payloadOf(name string) map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.events {
		if e.payload["event"] == name {
			return e.payload
		}
	}
	return nil
}

func (h *fakeHost) countKind(kind events.Kind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}

// --- fake actions ---

type fakeActions struct {
	openChatFn    func(ctx context.Context, target string) (automation.OpenResult, error)
	listChatsFn   func(ctx context.Context) ([]automation.ChatSummary, error)
	findUnreadFn  func(ctx context.Context) (automation.ChatRef, bool, error)
	selectChatFn  func(ctx context.Context, ref automation.ChatRef) error
	currentChatFn func(ctx context.Context) (string, bool, error)
	transcriptFn  func(ctx context.Context, ref automation.ChatRef) (automation.Transcript, error)
	sendTextFn    func(ctx context.Context, text string) error
	closeChatFn   func(ctx context.Context) error

	mu     sync.Mutex
	calls  []string
	opened []string
	sent   []string
}

func (f *fakeActions) call(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeActions) OpenChat(ctx context.Context, target string) (automation.OpenResult, error) {
	f.call("open:" + target)
	f.mu.Lock()
	f.opened = append(f.opened, target)
	f.mu.Unlock()
	if f.openChatFn != nil {
		return f.openChatFn(ctx, target)
	}
	return automation.OpenOpened, nil
}

func (f *fakeActions) ListChats(ctx context.Context) ([]automation.ChatSummary, error) {
	f.call("list")
	if f.listChatsFn != nil {
		return f.listChatsFn(ctx)
	}
	return []automation.ChatSummary{}, nil
}

func (f *fakeActions) FindNextUnreadChat(ctx context.Context) (automation.ChatRef, bool, error) {
	f.call("unread")
	if f.findUnreadFn != nil {
		return f.findUnreadFn(ctx)
	}
	return automation.ChatRef{}, false, nil
}

func (f *fakeActions) SelectChat(ctx context.Context, ref automation.ChatRef) error {
	f.call("select:" + ref.Name)
	if f.selectChatFn != nil {
		return f.selectChatFn(ctx, ref)
	}
	return nil
}

func (f *fakeActions) CurrentChat(ctx context.Context) (string, bool, error) {
	if f.currentChatFn != nil {
		return f.currentChatFn(ctx)
	}
	return "", false, nil
}

func (f *fakeActions) ExtractTranscript(ctx context.Context, ref automation.ChatRef) (automation.Transcript, error) {
	if f.transcriptFn != nil {
		return f.transcriptFn(ctx, ref)
	}
	return automation.Transcript{Chat: ref.Name, Messages: []automation.Message{}}, nil
}

func (f *fakeActions) SendText(ctx context.Context, text string) error {
	f.call("send")
	if f.sendTextFn != nil {
		if err := f.sendTextFn(ctx, text); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.sent = append(f.sent, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeActions) CloseChat(ctx context.Context) error {
	f.call("close")
	if f.closeChatFn != nil {
		return f.closeChatFn(ctx)
	}
	return nil
}

func (f *fakeActions) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeActions) openedTargets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...)
}

func (f *fakeActions) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// --- fake generator ---

type fakeGenerator struct {
	generateFn func(ctx context.Context, system, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.generateFn(ctx, system, prompt)
}

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// --- stub behavior ---

type stubBehavior struct {
	validateFn func() error
	cycleFn    func(ctx context.Context, rt *agent.Runtime) (agent.Outcome, error)

	mu     sync.Mutex
	resets int
	cycles int
}

func (s *stubBehavior) Kind() domain.AgentKind { return domain.AgentKindAutoReply }

func (s *stubBehavior) Validate() error {
	if s.validateFn != nil {
		return s.validateFn()
	}
	return nil
}

func (s *stubBehavior) RunCycle(ctx context.Context, rt *agent.Runtime) (agent.Outcome, error) {
	s.mu.Lock()
	s.cycles++
	s.mu.Unlock()
	if s.cycleFn != nil {
		return s.cycleFn(ctx, rt)
	}
	return agent.Outcome{Wait: time.Hour}, nil
}

func (s *stubBehavior) Reset() {
	s.mu.Lock()
	s.resets++
	s.mu.Unlock()
}

func (s *stubBehavior) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{"cycles": s.cycles}
}

func (s *stubBehavior) resetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

func (s *stubBehavior) cycleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycles
}
