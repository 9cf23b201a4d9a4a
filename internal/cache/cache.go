package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key does not exist or has expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Client is the key-value store the statistics cache manager talks to.
// Implementations must treat Get on a missing key as ErrCacheMiss, not a
// generic failure, so callers can tell a miss from an outage.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	KeysByPrefix(ctx context.Context, prefix string) ([]string, error)
	DeleteMany(ctx context.Context, keys []string) error
	Close() error
}
