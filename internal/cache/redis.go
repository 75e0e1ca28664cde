package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache is the shared backend for multi-instance deployments.
type RedisCache struct {
	prefix string
	client *redis.Client
}

// NewRedisCache connects with the given uri (redis://...) and pings once so a
// bad address fails at startup instead of on the first task.
func NewRedisCache(redisURI, prefix string) (*RedisCache, error) {
	options, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(options)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisCache{
		prefix: prefix,
		client: client,
	}, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		return "", ErrCacheMiss
	}
	return value, err
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
