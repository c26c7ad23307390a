package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/wabot/internal/events"
	redisstore "github.com/gosuda/wabot/internal/store/redis"
)

// Source delivers live events for one session until ctx ends or the
// returned cancel func is called.
type Source interface {
	Subscribe(ctx context.Context, sessionID string) (<-chan events.Event, func(), error)
}

// BrokerSource streams events recorded in this process.
type BrokerSource struct {
	broker *events.Broker
}

func NewBrokerSource(b *events.Broker) *BrokerSource {
	return &BrokerSource{broker: b}
}

func (s *BrokerSource) Subscribe(_ context.Context, sessionID string) (<-chan events.Event, func(), error) {
	ch, cancel := s.broker.Subscribe(sessionID)
	return ch, cancel, nil
}

// ChannelSubscriber is the Redis subscription surface RedisSource needs.
type ChannelSubscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// RedisSource streams events published by any wabot process sharing the
// Redis instance.
type RedisSource struct {
	sub ChannelSubscriber
}

func NewRedisSource(sub ChannelSubscriber) *RedisSource {
	return &RedisSource{sub: sub}
}

func (s *RedisSource) Subscribe(ctx context.Context, sessionID string) (<-chan events.Event, func(), error) {
	ctx, stop := context.WithCancel(ctx)

	raw, cleanup, err := s.sub.Subscribe(ctx, redisstore.SessionChannel(sessionID))
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("ws.RedisSource.Subscribe: %w", err)
	}

	out := make(chan events.Event, 64)
	go func() {
		defer close(out)
		for payload := range raw {
			var e events.Event
			if err := json.Unmarshal(payload, &e); err != nil {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("ws.RedisSource: decode event")
				continue
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		stop()
		cleanup()
	}
	return out, cancel, nil
}
