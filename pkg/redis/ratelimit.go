package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// FixedWindowLimiter counts hits per key inside a window that starts with
// the first hit and resets when the key expires.
type FixedWindowLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewFixedWindowLimiter uses the package client when c is nil.
func NewFixedWindowLimiter(c *redis.Client, prefix string, limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{client: c, prefix: prefix, limit: limit, window: window}
}

func (l *FixedWindowLimiter) redis() *redis.Client {
	if l.client != nil {
		return l.client
	}
	return client
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	storageKey := l.prefix + key

	pipe := l.redis().TxPipeline()
	incr := pipe.Incr(ctx, storageKey)
	pipe.ExpireNX(ctx, storageKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(l.limit), nil
}
