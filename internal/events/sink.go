package events

// Sink receives every recorded event. Publish must not block the caller for
// long and must not fail: sinks that do I/O buffer and drop on overload.
type Sink interface {
	Publish(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event)

// Publish implements Sink.
func (f SinkFunc) Publish(e Event) { f(e) }

// MultiSink fans an event out to each non-nil sink in order.
type MultiSink []Sink

// Publish implements Sink.
func (m MultiSink) Publish(e Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(e)
		}
	}
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})
