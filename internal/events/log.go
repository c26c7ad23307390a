package events

import (
	"sync"
	"time"
)

// DefaultCapacity is the event ring size used when none is configured.
const DefaultCapacity = 100

// Log is a fixed-capacity ring of events. Appends never block on readers and
// evict the oldest entry once full. Timestamps are forced strictly increasing
// so that a time cursor never misses or repeats an event.
type Log struct {
	mu    sync.RWMutex
	buf   []Event
	head  int // index of the oldest event
	size  int
	seq   uint64
	last  time.Time
	now   func() time.Time
	total uint64
}

// NewLog creates a log holding at most capacity events.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		buf: make([]Event, capacity),
		now: time.Now,
	}
}

// Append stamps e with the next sequence number and a timestamp later than
// every previously appended event, stores it, and returns the stored copy.
// A caller-supplied Time is kept when it is already ahead of the log.
func (l *Log) Append(e Event) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.Time.IsZero() {
		e.Time = l.now()
	}
	if !e.Time.After(l.last) {
		e.Time = l.last.Add(time.Nanosecond)
	}
	l.last = e.Time
	l.seq++
	e.Seq = l.seq
	l.total++

	capacity := len(l.buf)
	if l.size < capacity {
		l.buf[(l.head+l.size)%capacity] = e
		l.size++
	} else {
		l.buf[l.head] = e
		l.head = (l.head + 1) % capacity
	}
	return e
}

// Since returns, oldest first, the most recent limit events whose timestamp is
// strictly after cursor. A zero cursor matches everything; limit <= 0 means no
// limit.
func (l *Log) Since(cursor time.Time, limit int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	capacity := len(l.buf)
	start := 0
	if !cursor.IsZero() {
		// Timestamps are strictly increasing, so skip the prefix at or before cursor.
		for start < l.size && !l.buf[(l.head+start)%capacity].Time.After(cursor) {
			start++
		}
	}
	n := l.size - start
	if limit > 0 && n > limit {
		start += n - limit
		n = limit
	}

	out := make([]Event, 0, n)
	for i := start; i < l.size; i++ {
		out = append(out, l.buf[(l.head+i)%capacity])
	}
	return out
}

// Oldest returns the oldest retained event.
func (l *Log) Oldest() (Event, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.size == 0 {
		return Event{}, false
	}
	return l.buf[l.head], true
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Cap returns the ring capacity.
func (l *Log) Cap() int { return len(l.buf) }

// Total returns how many events were ever appended, evicted ones included.
func (l *Log) Total() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
