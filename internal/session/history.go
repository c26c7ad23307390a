package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/wabot/internal/events"
)

// maxArchiveRead bounds one archive read when the caller asks for no limit.
const maxArchiveRead = 1000

// History serves events that no longer fit in the in-memory log.
type History interface {
	// ListBySession returns, oldest first, the most recent limit archived
	// events of a session timestamped strictly between since and before.
	ListBySession(ctx context.Context, sessionID string, since, before time.Time, limit int) ([]events.Event, error)
}

// History is Events backfilled from the archive. The archive is consulted
// only when the log cannot fill the request on its own and only for events
// older than the oldest one still held in memory. Archive failures are
// logged and the in-memory events are returned alone.
func (s *Session) History(ctx context.Context, since time.Time, limit int) []events.Event {
	recent := s.log.Since(since, limit)
	if s.opts.History == nil || (limit > 0 && len(recent) >= limit) {
		return recent
	}

	// Only events older than everything still in memory come from the archive.
	if oldest, ok := s.log.Oldest(); ok && !since.Before(oldest.Time) {
		return recent
	}
	before := s.opts.Now()
	if len(recent) > 0 {
		before = recent[0].Time
	}

	want := maxArchiveRead
	if limit > 0 {
		want = limit - len(recent)
	}

	older, err := s.opts.History.ListBySession(ctx, s.id, since, before, want)
	if err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Msg("session.Session.History: archive read failed")
		return recent
	}
	if len(older) == 0 {
		return recent
	}

	out := make([]events.Event, 0, len(older)+len(recent))
	for _, e := range older {
		if e.Time.After(since) && e.Time.Before(before) {
			out = append(out, e)
		}
	}
	return append(out, recent...)
}
