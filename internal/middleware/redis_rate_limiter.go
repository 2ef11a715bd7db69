package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter enforces a fixed-window limit shared by every replica.
// When Redis is unreachable requests are allowed and the error is logged.
type RedisRateLimiter struct {
	client  redis.UniversalClient
	prefix  string
	limit   int64
	window  time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedisRateLimiter allows `limit` events per key in each `window`.
func NewRedisRateLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration, logger *slog.Logger) *RedisRateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRateLimiter{
		client:  client,
		prefix:  prefix,
		limit:   int64(limit),
		window:  window,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

func (l *RedisRateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	count, err := l.increment(ctx, fmt.Sprintf("%s:%s", l.prefix, key))
	if err != nil {
		l.logger.Warn("redis rate limiter unavailable, allowing request", "key", key, "error", err)
		return true
	}

	return count <= l.limit
}

func (l *RedisRateLimiter) increment(ctx context.Context, key string) (int64, error) {
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment rate limit counter: %w", err)
	}
	return incr.Val(), nil
}
