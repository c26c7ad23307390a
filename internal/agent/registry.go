package agent

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/gosuda/wabot/internal/domain"
)

// ErrUnknownAgent is returned when a requested agent kind is not registered.
var ErrUnknownAgent = fmt.Errorf("agent: unknown agent kind: %w", domain.ErrInvalidKind) //nolint:gochecknoglobals // sentinel error

// Deps are the collaborators a behavior may use.
type Deps struct {
	// Generator is nil when no language model is configured.
	Generator TextGenerator
	Now       func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Factory builds a behavior from its JSON-shaped configuration.
type Factory func(config map[string]any, deps Deps) (Behavior, error)

// Registry manages behavior factories by kind.
type Registry struct {
	mu        sync.RWMutex
	factories map[domain.AgentKind]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[domain.AgentKind]Factory),
	}
}

// DefaultRegistry returns a registry with every built-in behavior.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(domain.AgentKindAutoReply, NewAutoReply)
	r.Register(domain.AgentKindAutoOutreach, NewOutreach)
	return r
}

// Register adds a factory for an agent kind.
func (r *Registry) Register(kind domain.AgentKind, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Create instantiates a behavior for the given kind.
func (r *Registry) Create(kind domain.AgentKind, config map[string]any, deps Deps) (Behavior, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("agent.Registry.Create(%q): %w", kind, ErrUnknownAgent)
	}

	b, err := factory(config, deps)
	if err != nil {
		return nil, fmt.Errorf("agent.Registry.Create(%q): %w", kind, err)
	}

	return b, nil
}

// Available returns registered agent kinds in sorted order.
func (r *Registry) Available() []domain.AgentKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := slices.Collect(func(yield func(domain.AgentKind) bool) {
		for k := range r.factories {
			if !yield(k) {
				return
			}
		}
	})
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	return kinds
}
