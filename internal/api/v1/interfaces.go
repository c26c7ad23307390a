package v1

import (
	"context"
	"time"

	"github.com/gosuda/wabot/internal/automation"
	"github.com/gosuda/wabot/internal/domain"
	"github.com/gosuda/wabot/internal/events"
	"github.com/gosuda/wabot/internal/session"
)

// SessionService abstracts the session registry for handler testing.
// NewSessionService adapts *session.Manager to it.
type SessionService interface {
	CreateOrResume(req session.CreateRequest) (Session, bool, error)
	Get(id string) (Session, bool)
	Pause(id string) bool
	Resume(id string) bool
	Stop(id string) bool
	Delete(id string, purge bool) (bool, error)
	ListActive() []domain.SessionInfo
	ListSavedProfiles() ([]domain.ProfileInfo, error)
}

// Session abstracts one session for handler testing.
// *session.Session satisfies this interface.
type Session interface {
	ID() string
	ProfileName() string
	Status() domain.SessionStatus
	Snapshot() domain.SessionInfo
	InitDriver(ctx context.Context) (session.DriverResult, error)
	History(ctx context.Context, since time.Time, limit int) []events.Event
	UpdateMetadata(key string, value any)

	LoginState(ctx context.Context) (automation.LoginState, error)
	QRCode(ctx context.Context) (string, error)
	ListChats(ctx context.Context) ([]automation.ChatSummary, error)
	SendMessage(ctx context.Context, contact, text string) error

	OpenWhatsApp(ctx context.Context) error
	Navigate(ctx context.Context, rawURL string) error
	Click(ctx context.Context, selector string) error
	TypeText(ctx context.Context, selector, text string) error
	ExtractText(ctx context.Context, selector string) (string, error)
	ExtractAll(ctx context.Context, selector string) ([]string, error)
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) (bool, error)

	AgentStatuses() map[domain.AgentKind]domain.AgentInfo
	EnableAgent(kind domain.AgentKind, config map[string]any) error
	DisableAgent(kind domain.AgentKind) (bool, error)
	PauseAgent(kind domain.AgentKind) bool
	ResumeAgent(kind domain.AgentKind) bool
	AddContacts(contacts []string) (int, error)
}

var _ Session = (*session.Session)(nil)

type managerService struct {
	m *session.Manager
}

// NewSessionService exposes a session.Manager as a SessionService.
func NewSessionService(m *session.Manager) SessionService {
	return &managerService{m: m}
}

func (s *managerService) CreateOrResume(req session.CreateRequest) (Session, bool, error) {
	sess, created, err := s.m.CreateOrResume(req)
	if err != nil {
		return nil, false, err
	}
	return sess, created, nil
}

func (s *managerService) Get(id string) (Session, bool) {
	sess, ok := s.m.Get(id)
	if !ok {
		return nil, false
	}
	return sess, true
}

func (s *managerService) Pause(id string) bool  { return s.m.Pause(id) }
func (s *managerService) Resume(id string) bool { return s.m.Resume(id) }
func (s *managerService) Stop(id string) bool   { return s.m.Stop(id) }

func (s *managerService) Delete(id string, purge bool) (bool, error) {
	return s.m.Delete(id, purge)
}

func (s *managerService) ListActive() []domain.SessionInfo { return s.m.ListActive() }

func (s *managerService) ListSavedProfiles() ([]domain.ProfileInfo, error) {
	return s.m.ListSavedProfiles()
}
