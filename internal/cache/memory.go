package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps everything in-process. It is the default backend when no
// redis uri is configured, mainly for demos and tests.
type MemoryCache struct {
	prefix string
	data   *gocache.Cache
}

func NewMemoryCache(prefix string) *MemoryCache {
	return &MemoryCache{
		prefix: prefix,
		data:   gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

func (c *MemoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.data.Set(c.prefix+key, value, ttl)
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	value, exist := c.data.Get(c.prefix + key)
	if !exist {
		return "", ErrCacheMiss
	}
	return value.(string), nil
}

func (c *MemoryCache) Close() error {
	return nil
}
