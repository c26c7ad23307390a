package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gosuda/wabot/internal/automation"
	"github.com/gosuda/wabot/internal/events"
	"github.com/gosuda/wabot/internal/profile"
	"github.com/gosuda/wabot/internal/session"
)

const (
	waitFor   = 2 * time.Second
	pollEvery = 5 * time.Millisecond
)

// fakeSurface pretends to be WhatsApp Web. Logged out, only the QR canvas
// exists; logged in, every selector matches.
type fakeSurface struct {
	mu       sync.Mutex
	loggedIn bool
	closed   bool
	chats    []automation.ChatSummary
	urls     []string
	texts    map[string]string
	clicks   []string
	typed    []string
}

func (f *fakeSurface) setLoggedIn(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedIn = v
}

func (f *fakeSurface) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSurface) check() error {
	if f.closed {
		return automation.ErrSurfaceClosed
	}
	return nil
}

func (f *fakeSurface) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return f.check()
}

func (f *fakeSurface) Exists(_ context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return false, err
	}
	return f.loggedIn || selector == "canvas", nil
}

func (f *fakeSurface) Click(_ context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, selector)
	return f.check()
}

func (f *fakeSurface) ContextClick(context.Context, string, float64, float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.check()
}

func (f *fakeSurface) Type(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typed = append(f.typed, text)
	return f.check()
}

func (f *fakeSurface) Press(context.Context, ...automation.Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.check()
}

func (f *fakeSurface) Text(_ context.Context, selector string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[selector], f.check()
}

func (f *fakeSurface) Eval(_ context.Context, out any, script automation.Script, _ ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return err
	}

	var v any
	switch script.Name {
	case "qr_data":
		v = "data:image/png;base64,UVI="
	case "chat_list":
		v = f.chats
	case "composer_empty":
		v = true
	case "text_all":
		all := make([]string, 0, len(f.texts))
		for _, t := range f.texts {
			all = append(all, t)
		}
		v = all
	}
	if out == nil || v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (f *fakeSurface) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeLauncher struct {
	mu       sync.Mutex
	err      error
	loggedIn bool
	chats    []automation.ChatSummary
	dirs     []string
	surfaces []*fakeSurface
}

func (l *fakeLauncher) Launch(_ context.Context, dir string, _ bool) (automation.Surface, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	s := &fakeSurface{loggedIn: l.loggedIn, chats: l.chats}
	l.dirs = append(l.dirs, dir)
	l.surfaces = append(l.surfaces, s)
	return s, nil
}

func (l *fakeLauncher) setErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

func (l *fakeLauncher) launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.surfaces)
}

func (l *fakeLauncher) last() *fakeSurface {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.surfaces) == 0 {
		return nil
	}
	return l.surfaces[len(l.surfaces)-1]
}

var errLaunch = errors.New("chrome not found")

// captureSink keeps every published event.
type captureSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *captureSink) Publish(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func testOptions(sink events.Sink) session.Options {
	return session.Options{
		EventLogCap:       50,
		LoginWatchTimeout: waitFor,
		LoginPollInterval: 10 * time.Millisecond,
		AgentStopTimeout:  time.Second,
		AgentTick:         2 * time.Millisecond,
		Automation: automation.Config{
			ActionTimeout:   100 * time.Millisecond,
			NavigateTimeout: 100 * time.Millisecond,
			PollInterval:    5 * time.Millisecond,
			CheckTimeout:    30 * time.Millisecond,
		},
		Sink: sink,
	}
}

func newTestManager(t *testing.T, l *fakeLauncher) (*session.Manager, *profile.Store) {
	t.Helper()
	store := profile.NewStore(t.TempDir())
	m := session.NewManager(store, l, testOptions(nil))
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m, store
}

func newTestSession(t *testing.T, l *fakeLauncher) (*session.Manager, *session.Session) {
	t.Helper()
	m, _ := newTestManager(t, l)
	s, _, err := m.CreateOrResume(session.CreateRequest{ProfileName: "sales"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return m, s
}

func hasPayload(list []events.Event, key string, value any) bool {
	for _, e := range list {
		if e.Payload[key] == value {
			return true
		}
	}
	return false
}

func countMessage(list []events.Event, msg string) int {
	n := 0
	for _, e := range list {
		if e.Message == msg {
			n++
		}
	}
	return n
}
