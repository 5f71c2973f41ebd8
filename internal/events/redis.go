package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultChannelPrefix = "battleship:"

// RedisPublisher publishes JSON-encoded events with PUBLISH. Having no
// subscribers is not an error.
type RedisPublisher struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisPublisher(rdb redis.UniversalClient, prefix string) *RedisPublisher {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultChannelPrefix
	}
	return &RedisPublisher{rdb: rdb, prefix: prefix}
}

// Channel returns the Redis channel name for a logical channel.
func (p *RedisPublisher) Channel(channel string) string { return p.prefix + channel }

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.Channel(ev.Channel), raw).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", ev.Channel, err)
	}
	return nil
}
