package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultAsyncBuffer  = 256
	DefaultAsyncTimeout = 5 * time.Second
)

// DeliverFunc hands one event to an external system.
type DeliverFunc func(ctx context.Context, e Event) error

// Async is a Sink that queues events and delivers them from one goroutine,
// in order. Publish never blocks; events that do not fit the queue are
// dropped and logged.
type Async struct {
	name    string
	deliver DeliverFunc
	timeout time.Duration
	queue   chan Event

	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}
}

var _ Sink = (*Async)(nil)

// NewAsync starts the delivery goroutine. name tags log lines; buffer and
// timeout fall back to the defaults when not positive.
func NewAsync(name string, buffer int, timeout time.Duration, deliver DeliverFunc) *Async {
	if buffer <= 0 {
		buffer = DefaultAsyncBuffer
	}
	if timeout <= 0 {
		timeout = DefaultAsyncTimeout
	}
	a := &Async{
		name:    name,
		deliver: deliver,
		timeout: timeout,
		queue:   make(chan Event, buffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go a.run()
	return a
}

// Publish implements Sink.
func (a *Async) Publish(e Event) {
	select {
	case <-a.done:
		return
	default:
	}

	select {
	case a.queue <- e:
	default:
		log.Warn().Str("sink", a.name).Str("session_id", e.SessionID).Uint64("seq", e.Seq).
			Msg("events.Async.Publish: queue full, event dropped")
	}
}

// Close stops accepting events and returns once the queued ones are
// delivered. It is safe to call more than once.
func (a *Async) Close() {
	a.closeOnce.Do(func() {
		close(a.done)
	})
	<-a.stopped
}

func (a *Async) run() {
	defer close(a.stopped)
	for {
		select {
		case e := <-a.queue:
			a.send(e)
		case <-a.done:
			for {
				select {
				case e := <-a.queue:
					a.send(e)
				default:
					return
				}
			}
		}
	}
}

func (a *Async) send(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.deliver(ctx, e); err != nil {
		log.Error().Err(err).Str("sink", a.name).Str("session_id", e.SessionID).Uint64("seq", e.Seq).
			Msg("events.Async: deliver event")
	}
}
