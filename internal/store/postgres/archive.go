package postgres

import (
	"context"

	"github.com/gosuda/wabot/internal/events"
)

// Appender stores one event.
type Appender interface {
	Append(ctx context.Context, e events.Event) error
}

// NewArchive returns a sink that writes every session event through app.
// Close the sink to flush pending writes.
func NewArchive(app Appender, buffer int) *events.Async {
	return events.NewAsync("postgres", buffer, 0, app.Append)
}
