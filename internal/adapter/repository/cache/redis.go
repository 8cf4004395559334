package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/armistcxy/url-shorten/internal/entity"
)

const (
	keyPrefix      = "url:"
	fieldOrigin    = "origin"
	fieldCreatedAt = "created_at"
)

// RedisCache stores each record as a hash under "url:<id>" with a TTL.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *RedisCache) Get(ctx context.Context, id string) (*entity.URL, error) {
	const op = "adapter.repository.cache.RedisCache.Get"

	fields, err := c.client.HGetAll(ctx, keyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(fields) == 0 {
		return nil, ErrMiss
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse created_at: %w", op, err)
	}

	return &entity.URL{
		ID:          id,
		OriginalURL: fields[fieldOrigin],
		CreatedAt:   createdAt,
	}, nil
}

func (c *RedisCache) Set(ctx context.Context, url *entity.URL) error {
	const op = "adapter.repository.cache.RedisCache.Set"

	key := keyPrefix + url.ID

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			fieldOrigin:    url.OriginalURL,
			fieldCreatedAt: url.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
