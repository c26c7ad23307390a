package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 64

// Broker is an in-process Sink that fans events out to per-session
// subscribers. Slow subscribers lose events instead of stalling publishers.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan Event]struct{})}
}

// Publish implements Sink.
func (b *Broker) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[e.SessionID] {
		select {
		case ch <- e:
		default:
			log.Warn().Str("session_id", e.SessionID).Uint64("seq", e.Seq).
				Msg("events.Broker.Publish: subscriber buffer full, dropping event")
		}
	}
}

// Subscribe registers a subscriber for one session. The returned cancel func
// unregisters it and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe(sessionID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	set, ok := b.subs[sessionID]
	if !ok {
		set = make(map[chan Event]struct{})
		b.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subs[sessionID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(b.subs, sessionID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of live subscribers for a session.
func (b *Broker) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}
