package v1_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/wabot/internal/api/v1"
	"github.com/gosuda/wabot/internal/automation"
	"github.com/gosuda/wabot/internal/domain"
	"github.com/gosuda/wabot/internal/events"
	"github.com/gosuda/wabot/internal/session"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func newTestAPI(t *testing.T) (humatest.TestAPI, *mockSessionService) {
	t.Helper()

	_, api := humatest.New(t)
	svc := &mockSessionService{sessions: map[string]*mockSession{}}

	v1.RegisterSessionRoutes(api, svc)
	v1.RegisterWhatsAppRoutes(api, svc)
	v1.RegisterAgentRoutes(api, svc)
	v1.RegisterBrowserRoutes(api, svc)

	return api, svc
}

// parseErrorBody decodes the RFC 9457 problem detail from the response body.
func parseErrorBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

// ---------------------------------------------------------------------------
// Mock SessionService
// ---------------------------------------------------------------------------

type mockSessionService struct {
	sessions map[string]*mockSession

	createFunc       func(req session.CreateRequest) (v1.Session, bool, error)
	pauseFunc        func(id string) bool
	resumeFunc       func(id string) bool
	stopFunc         func(id string) bool
	deleteFunc       func(id string, purge bool) (bool, error)
	listActiveFunc   func() []domain.SessionInfo
	listProfilesFunc func() ([]domain.ProfileInfo, error)
}

func (m *mockSessionService) add(s *mockSession) *mockSession {
	m.sessions[s.id] = s
	return s
}

func (m *mockSessionService) CreateOrResume(req session.CreateRequest) (v1.Session, bool, error) {
	return m.createFunc(req)
}

func (m *mockSessionService) Get(id string) (v1.Session, bool) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return s, true
}

func (m *mockSessionService) Pause(id string) bool  { return m.pauseFunc(id) }
func (m *mockSessionService) Resume(id string) bool { return m.resumeFunc(id) }
func (m *mockSessionService) Stop(id string) bool   { return m.stopFunc(id) }

func (m *mockSessionService) Delete(id string, purge bool) (bool, error) {
	return m.deleteFunc(id, purge)
}

func (m *mockSessionService) ListActive() []domain.SessionInfo { return m.listActiveFunc() }

func (m *mockSessionService) ListSavedProfiles() ([]domain.ProfileInfo, error) {
	return m.listProfilesFunc()
}

// ---------------------------------------------------------------------------
// Mock Session
// ---------------------------------------------------------------------------

type mockSession struct {
	id      string
	profile string
	status  domain.SessionStatus

	snapshotFunc     func() domain.SessionInfo
	initDriverFunc   func(ctx context.Context) (session.DriverResult, error)
	eventsFunc       func(since time.Time, limit int) []events.Event
	updateMetaFunc   func(key string, value any)
	loginStateFunc   func(ctx context.Context) (automation.LoginState, error)
	qrCodeFunc       func(ctx context.Context) (string, error)
	listChatsFunc    func(ctx context.Context) ([]automation.ChatSummary, error)
	sendMessageFunc  func(ctx context.Context, contact, text string) error
	openWhatsAppFunc func(ctx context.Context) error
	navigateFunc     func(ctx context.Context, rawURL string) error
	clickFunc        func(ctx context.Context, selector string) error
	typeTextFunc     func(ctx context.Context, selector, text string) error
	extractTextFunc  func(ctx context.Context, selector string) (string, error)
	extractAllFunc   func(ctx context.Context, selector string) ([]string, error)
	waitFunc         func(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	agentsFunc       func() map[domain.AgentKind]domain.AgentInfo
	enableAgentFunc  func(kind domain.AgentKind, config map[string]any) error
	disableAgentFunc func(kind domain.AgentKind) (bool, error)
	pauseAgentFunc   func(kind domain.AgentKind) bool
	resumeAgentFunc  func(kind domain.AgentKind) bool
	addContactsFunc  func(contacts []string) (int, error)
}

func newMockSession(id string) *mockSession {
	return &mockSession{id: id, profile: "sales", status: domain.SessionStatusActive}
}

func (m *mockSession) ID() string                   { return m.id }
func (m *mockSession) ProfileName() string          { return m.profile }
func (m *mockSession) Status() domain.SessionStatus { return m.status }
func (m *mockSession) Snapshot() domain.SessionInfo { return m.snapshotFunc() }

func (m *mockSession) InitDriver(ctx context.Context) (session.DriverResult, error) {
	return m.initDriverFunc(ctx)
}

func (m *mockSession) History(_ context.Context, since time.Time, limit int) []events.Event {
	return m.eventsFunc(since, limit)
}

func (m *mockSession) UpdateMetadata(key string, value any) { m.updateMetaFunc(key, value) }

func (m *mockSession) LoginState(ctx context.Context) (automation.LoginState, error) {
	return m.loginStateFunc(ctx)
}

func (m *mockSession) QRCode(ctx context.Context) (string, error) { return m.qrCodeFunc(ctx) }

func (m *mockSession) ListChats(ctx context.Context) ([]automation.ChatSummary, error) {
	return m.listChatsFunc(ctx)
}

func (m *mockSession) SendMessage(ctx context.Context, contact, text string) error {
	return m.sendMessageFunc(ctx, contact, text)
}

func (m *mockSession) OpenWhatsApp(ctx context.Context) error { return m.openWhatsAppFunc(ctx) }

func (m *mockSession) Navigate(ctx context.Context, rawURL string) error {
	return m.navigateFunc(ctx, rawURL)
}

func (m *mockSession) Click(ctx context.Context, selector string) error {
	return m.clickFunc(ctx, selector)
}

func (m *mockSession) TypeText(ctx context.Context, selector, text string) error {
	return m.typeTextFunc(ctx, selector, text)
}

func (m *mockSession) ExtractText(ctx context.Context, selector string) (string, error) {
	return m.extractTextFunc(ctx, selector)
}

func (m *mockSession) ExtractAll(ctx context.Context, selector string) ([]string, error) {
	return m.extractAllFunc(ctx, selector)
}

func (m *mockSession) WaitForElement(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	return m.waitFunc(ctx, selector, timeout)
}

func (m *mockSession) AgentStatuses() map[domain.AgentKind]domain.AgentInfo { return m.agentsFunc() }

func (m *mockSession) EnableAgent(kind domain.AgentKind, config map[string]any) error {
	return m.enableAgentFunc(kind, config)
}

func (m *mockSession) DisableAgent(kind domain.AgentKind) (bool, error) {
	return m.disableAgentFunc(kind)
}

func (m *mockSession) PauseAgent(kind domain.AgentKind) bool  { return m.pauseAgentFunc(kind) }
func (m *mockSession) ResumeAgent(kind domain.AgentKind) bool { return m.resumeAgentFunc(kind) }

func (m *mockSession) AddContacts(contacts []string) (int, error) {
	return m.addContactsFunc(contacts)
}
