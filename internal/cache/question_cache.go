package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"predictmarket/internal/domain"
)

// QuestionCache keeps the serialized active-question list per domain in
// redis so the hot browse endpoint skips Postgres between resolutions.
// A nil *QuestionCache is a valid no-op cache; the server runs without
// redis when REDIS_ADDR is unset.
type QuestionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func Connect(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

func NewQuestionCache(client *redis.Client, ttl time.Duration) *QuestionCache {
	return &QuestionCache{client: client, ttl: ttl}
}

func key(d domain.Domain) string {
	return "questions:active:" + string(d)
}

func (c *QuestionCache) Get(ctx context.Context, d domain.Domain) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, key(d)).Bytes()
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (c *QuestionCache) Set(ctx context.Context, d domain.Domain, payload []byte) {
	if c == nil {
		return
	}
	_ = c.client.Set(ctx, key(d), payload, c.ttl).Err()
}

// Invalidate drops the cached list after a question is created or
// resolved in the domain.
func (c *QuestionCache) Invalidate(ctx context.Context, d domain.Domain) {
	if c == nil {
		return
	}
	_ = c.client.Del(ctx, key(d)).Err()
}
