package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type envelope struct {
	UserID string `json:"user_id,omitempty"`
	Event  Event  `json:"event"`
}

// RedisBridge publishes events on a Redis channel so every instance
// subscribed with Listen delivers them to its own hub.
type RedisBridge struct {
	rdb     *redis.Client
	channel string
	hub     *Hub
	log     *zap.Logger
}

var _ Publisher = (*RedisBridge)(nil)

func NewRedisBridge(rdb *redis.Client, channel string, hub *Hub, log *zap.Logger) *RedisBridge {
	return &RedisBridge{rdb: rdb, channel: channel, hub: hub, log: log}
}

func (b *RedisBridge) publish(ctx context.Context, env envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.log.Warn("failed to publish realtime event", zap.String("event", env.Event.Name), zap.String("user_id", env.UserID), zap.Error(err))
		eventsTotal.WithLabelValues(env.Event.Name, "publish_failed").Inc()
		return err
	}
	return nil
}

func (b *RedisBridge) ToUser(ctx context.Context, userID string, event Event) error {
	return b.publish(ctx, envelope{UserID: userID, Event: event})
}

func (b *RedisBridge) Broadcast(ctx context.Context, event Event) error {
	return b.publish(ctx, envelope{Event: event})
}

// Listen forwards channel messages to the local hub until ctx is done.
func (b *RedisBridge) Listen(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("malformed realtime event", zap.Error(err))
				continue
			}
			if env.UserID == "" {
				_ = b.hub.Broadcast(ctx, env.Event)
			} else {
				_ = b.hub.ToUser(ctx, env.UserID, env.Event)
			}
		}
	}
}
