package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/wabot/internal/events"
)

// EventRepo archives session events. Session sequence numbers restart when a
// process restarts, so rows are keyed by (session_id, seq, created_at).
type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func (r *EventRepo) Append(ctx context.Context, e events.Event) error {
	payload, err := encodePayload(e.Payload)
	if err != nil {
		return fmt.Errorf("eventRepo.Append: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO session_events (session_id, seq, event_type, message, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT DO NOTHING`,
		e.SessionID, int64(e.Seq), string(e.Kind), e.Message, payload, e.Time,
	)
	if err != nil {
		return fmt.Errorf("eventRepo.Append: %w", err)
	}

	return nil
}

// ListBySession returns, oldest first, the most recent limit archived events
// of a session timestamped strictly between since and before. It serves
// session.History.
func (r *EventRepo) ListBySession(ctx context.Context, sessionID string, since, before time.Time, limit int) ([]events.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, seq, event_type, message, payload, created_at FROM (
			SELECT session_id, seq, event_type, message, payload, created_at
			FROM session_events
			WHERE session_id = $1 AND created_at > $2 AND created_at < $3
			ORDER BY created_at DESC
			LIMIT $4
		 ) recent ORDER BY created_at ASC`,
		sessionID, since, before, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("eventRepo.ListBySession: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			e       events.Event
			seq     int64
			kind    string
			payload []byte
		)

		err = rows.Scan(&e.SessionID, &seq, &kind, &e.Message, &payload, &e.Time)
		if err != nil {
			return nil, fmt.Errorf("eventRepo.ListBySession: scan: %w", err)
		}
		e.Seq = uint64(seq)
		e.Kind = events.Kind(kind)
		if e.Payload, err = decodePayload(payload); err != nil {
			return nil, fmt.Errorf("eventRepo.ListBySession: %w", err)
		}
		out = append(out, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("eventRepo.ListBySession: rows: %w", err)
	}

	return out, nil
}

func encodePayload(p map[string]any) ([]byte, error) {
	if len(p) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return b, nil
}

func decodePayload(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var p map[string]any
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}
