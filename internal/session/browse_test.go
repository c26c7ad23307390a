package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/wabot/internal/automation"
	"github.com/gosuda/wabot/internal/domain"
	"github.com/gosuda/wabot/internal/events"
)

func TestSession_BrowserActionsNeedDriver(t *testing.T) {
	t.Parallel()

	_, s := newTestSession(t, &fakeLauncher{})
	ctx := context.Background()

	require.ErrorIs(t, s.OpenWhatsApp(ctx), domain.ErrNoDriver)
	require.ErrorIs(t, s.Navigate(ctx, "https://example.test/"), domain.ErrNoDriver)
	require.ErrorIs(t, s.Click(ctx, "#btn"), domain.ErrNoDriver)
	require.ErrorIs(t, s.TypeText(ctx, "#in", "x"), domain.ErrNoDriver)

	_, err := s.ExtractText(ctx, "h1")
	require.ErrorIs(t, err, domain.ErrNoDriver)
	_, err = s.ExtractAll(ctx, "li")
	require.ErrorIs(t, err, domain.ErrNoDriver)
	_, err = s.WaitForElement(ctx, "h1", time.Second)
	require.ErrorIs(t, err, domain.ErrNoDriver)
}

func TestSession_BrowserActionsValidateInput(t *testing.T) {
	t.Parallel()

	_, s := newTestSession(t, &fakeLauncher{loggedIn: true})
	ctx := context.Background()
	_, err := s.InitDriver(ctx)
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
	}{
		{name: "relative url", call: func() error { return s.Navigate(ctx, "/chats") }},
		{name: "non http scheme", call: func() error { return s.Navigate(ctx, "file:///etc/passwd") }},
		{name: "blank click selector", call: func() error { return s.Click(ctx, "  ") }},
		{name: "blank type selector", call: func() error { return s.TypeText(ctx, "", "x") }},
		{name: "non positive wait", call: func() error {
			_, err := s.WaitForElement(ctx, "h1", 0)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.call(), domain.ErrPrecondition)
		})
	}
}

func TestSession_BrowserActions(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{loggedIn: true}
	_, s := newTestSession(t, l)
	ctx := context.Background()
	_, err := s.InitDriver(ctx)
	require.NoError(t, err)

	surface := l.last()
	surface.mu.Lock()
	surface.texts = map[string]string{"h1": " Welcome "}
	surface.mu.Unlock()

	require.NoError(t, s.Navigate(ctx, "https://example.test/page"))
	require.NoError(t, s.OpenWhatsApp(ctx))
	require.NoError(t, s.Click(ctx, "#btn"))
	require.NoError(t, s.TypeText(ctx, "#in", "hello"))

	text, err := s.ExtractText(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "Welcome", text)

	all, err := s.ExtractAll(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, []string{" Welcome "}, all)

	found, err := s.WaitForElement(ctx, "#anything", 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, found)

	surface.mu.Lock()
	assert.Equal(t, []string{"https://web.whatsapp.com/", "https://example.test/page", "https://web.whatsapp.com/"}, surface.urls)
	assert.Equal(t, []string{"#btn"}, surface.clicks)
	assert.Equal(t, []string{"hello"}, surface.typed)
	surface.mu.Unlock()

	list := s.Events(time.Time{}, 0)
	assert.True(t, hasPayload(list, "url", "https://example.test/page"))
	assert.True(t, hasPayload(list, "selector", "#btn"))
	assert.True(t, hasPayload(list, "event", "type"))
	for _, e := range list {
		if e.Payload["event"] == "navigate" {
			assert.Equal(t, events.KindAction, e.Kind)
		}
	}
}

func TestSession_BrowserActionsMissingElement(t *testing.T) {
	t.Parallel()

	_, s := newTestSession(t, &fakeLauncher{})
	ctx := context.Background()
	_, err := s.InitDriver(ctx)
	require.NoError(t, err)

	require.ErrorIs(t, s.Click(ctx, "#btn"), automation.ErrElementNotFound)

	found, err := s.WaitForElement(ctx, "#btn", 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, found)
}
