package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key does not exist. A malformed or
// expired entry reads the same as a missing one.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache is the minimal key-value surface the task store is built on. Both
// backends namespace keys with a configurable prefix so that several
// deployments can share one backend.
type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Close() error
}
