package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gosuda/wabot/internal/events"
)

// Publisher abstracts the Redis publish operation.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// NewSink returns a sink publishing each session event as JSON to its
// SessionChannel. Close the sink to flush pending events.
func NewSink(pub Publisher, buffer int) *events.Async {
	return events.NewAsync("redis", buffer, 0, func(ctx context.Context, e events.Event) error {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("redis.Sink: marshal event: %w", err)
		}
		if err := pub.Publish(ctx, SessionChannel(e.SessionID), payload); err != nil {
			return fmt.Errorf("redis.Sink: %w", err)
		}
		return nil
	})
}
