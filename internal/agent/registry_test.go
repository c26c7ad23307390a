package agent_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/wabot/internal/agent"
	"github.com/gosuda/wabot/internal/domain"
)

func TestRegistry_RegisterAndCreate(t *testing.T) {
	t.Parallel()

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()

		reg := agent.NewRegistry()
		reg.Register(domain.AgentKindAutoReply, func(map[string]any, agent.Deps) (agent.Behavior, error) {
			return &stubBehavior{}, nil
		})

		b, err := reg.Create(domain.AgentKindAutoReply, nil, agent.Deps{})

		require.NoError(t, err)
		require.NotNil(t, b)
	})

	t.Run("unknown kind returns ErrUnknownAgent", func(t *testing.T) {
		t.Parallel()

		reg := agent.NewRegistry()

		b, err := reg.Create("nonexistent", nil, agent.Deps{})

		require.Error(t, err)
		assert.Nil(t, b)
		assert.ErrorIs(t, err, agent.ErrUnknownAgent)
		assert.ErrorIs(t, err, domain.ErrInvalidKind)
	})

	t.Run("factory error propagated", func(t *testing.T) {
		t.Parallel()

		reg := agent.NewRegistry()
		reg.Register("broken", func(map[string]any, agent.Deps) (agent.Behavior, error) {
			return nil, errors.New("factory boom")
		})

		b, err := reg.Create("broken", nil, agent.Deps{})

		require.Error(t, err)
		assert.Nil(t, b)
		assert.Contains(t, err.Error(), "factory boom")
	})

	t.Run("Available returns sorted kinds", func(t *testing.T) {
		t.Parallel()

		reg := agent.DefaultRegistry()

		assert.Equal(t, []domain.AgentKind{domain.AgentKindAutoOutreach, domain.AgentKindAutoReply}, reg.Available())
	})
}

func TestDefaultRegistry_Create(t *testing.T) {
	t.Parallel()

	reg := agent.DefaultRegistry()

	for _, kind := range domain.AgentKinds() {
		b, err := reg.Create(kind, nil, agent.Deps{})
		require.NoError(t, err)
		assert.Equal(t, kind, b.Kind())
	}

	_, err := reg.Create(domain.AgentKindAutoOutreach, map[string]any{"daily_limit": "many"}, agent.Deps{})
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	reg := agent.DefaultRegistry()

	var wg sync.WaitGroup

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		wg.Go(func() {
			reg.Register(domain.AgentKind("custom-"+name), func(map[string]any, agent.Deps) (agent.Behavior, error) {
				return &stubBehavior{}, nil
			})
		})
	}

	for range 10 {
		wg.Go(func() {
			b, err := reg.Create(domain.AgentKindAutoReply, nil, agent.Deps{})
			assert.NoError(t, err)
			assert.NotNil(t, b)
		})
	}

	for range 5 {
		wg.Go(func() {
			_ = reg.Available()
		})
	}

	wg.Wait()

	assert.Len(t, reg.Available(), 7)
}
