package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RecordEventsChannel is the Redis pub/sub channel every API instance listens on.
const RecordEventsChannel = "record_events"

// RedisPublisher publishes JSON events on a Redis channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: RecordEventsChannel}
}

func (p *RedisPublisher) Publish(ctx context.Context, evt RecordEvent) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode record event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("failed to publish record event to redis: %w", err)
	}
	return nil
}

// Subscribe forwards raw event payloads from the Redis channel to handle until
// ctx is cancelled.
func Subscribe(ctx context.Context, rdb *redis.Client, handle func(payload []byte)) error {
	pubsub := rdb.Subscribe(ctx, RecordEventsChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", RecordEventsChannel, err)
	}
	log.Info().Str("channel", RecordEventsChannel).Msg("subscribed to record events")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handle([]byte(msg.Payload))
		}
	}
}
