package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/wabot/internal/domain"
)

func TestSessionStatus_ValidTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from domain.SessionStatus
		to   domain.SessionStatus
		want bool
	}{
		{domain.SessionStatusActive, domain.SessionStatusPaused, true},
		{domain.SessionStatusActive, domain.SessionStatusStopped, true},
		{domain.SessionStatusActive, domain.SessionStatusError, true},
		{domain.SessionStatusActive, domain.SessionStatusActive, false},

		{domain.SessionStatusPaused, domain.SessionStatusActive, true},
		{domain.SessionStatusPaused, domain.SessionStatusPaused, false},
		{domain.SessionStatusPaused, domain.SessionStatusStopped, true},

		{domain.SessionStatusStopped, domain.SessionStatusPaused, false},
		{domain.SessionStatusStopped, domain.SessionStatusActive, true},
		{domain.SessionStatusStopped, domain.SessionStatusStopped, true},

		{domain.SessionStatusError, domain.SessionStatusActive, true},
		{domain.SessionStatusError, domain.SessionStatusPaused, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.from.ValidTransition(tt.to))
		})
	}
}

func TestAgentStatus_ValidTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from domain.AgentStatus
		to   domain.AgentStatus
		want bool
	}{
		{domain.AgentStatusDisabled, domain.AgentStatusEnabled, true},
		{domain.AgentStatusError, domain.AgentStatusEnabled, true},
		{domain.AgentStatusPaused, domain.AgentStatusEnabled, true},
		{domain.AgentStatusEnabled, domain.AgentStatusEnabled, false},

		{domain.AgentStatusEnabled, domain.AgentStatusPaused, true},
		{domain.AgentStatusDisabled, domain.AgentStatusPaused, false},
		{domain.AgentStatusPaused, domain.AgentStatusPaused, false},

		{domain.AgentStatusEnabled, domain.AgentStatusDisabled, true},
		{domain.AgentStatusError, domain.AgentStatusDisabled, true},

		{domain.AgentStatusEnabled, domain.AgentStatusError, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.from.ValidTransition(tt.to))
		})
	}
}

func TestParseAgentKind(t *testing.T) {
	t.Parallel()

	kind, err := domain.ParseAgentKind("autoreply")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentKindAutoReply, kind)

	kind, err = domain.ParseAgentKind("auto_outreach")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentKindAutoOutreach, kind)

	_, err = domain.ParseAgentKind("none")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
}

func TestAgentStatus_Active(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.AgentStatusEnabled.Active())
	assert.True(t, domain.AgentStatusPaused.Active())
	assert.False(t, domain.AgentStatusDisabled.Active())
	assert.False(t, domain.AgentStatusError.Active())
}
