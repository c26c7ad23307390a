package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_events (
	session_id  TEXT        NOT NULL,
	seq         BIGINT      NOT NULL,
	event_type  TEXT        NOT NULL,
	message     TEXT        NOT NULL,
	payload     JSONB,
	created_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, seq, created_at)
);
CREATE INDEX IF NOT EXISTS session_events_created_at_idx ON session_events (session_id, created_at);
`

type Store struct {
	pool   *pgxpool.Pool
	events *EventRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:   pool,
		events: NewEventRepo(pool),
	}, nil
}

// Migrate creates the archive table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres.Store.Migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Events() *EventRepo { return s.events }

// Ping checks that the pool can reach the database.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres.Store.Ping: %w", err)
	}
	return nil
}
