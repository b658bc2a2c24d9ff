package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter answers whether a caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Noop admits every request. Used when rate limiting is disabled.
type Noop struct{}

func (Noop) Allow(context.Context, string) (bool, error) { return true, nil }

// RedisLimiter is a fixed-window counter shared across replicas. Each
// window gets its own Redis key; the key expires with the window so stale
// counters clean themselves up.
type RedisLimiter struct {
	Client *redis.Client
	Limit  int
	Window time.Duration
	Logger *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, logger *slog.Logger) *RedisLimiter {
	return &RedisLimiter{Client: client, Limit: limit, Window: window, Logger: logger}
}

// Allow increments the caller's counter for the current window. Redis
// being unreachable admits the request: the limiter protects the LLM
// backend from bursts, it is not an availability dependency.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := windowKey(key, l.clock()(), l.Window)

	pipe := l.Client.TxPipeline()
	count := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger().Warn("rate_limit_unavailable", slog.String("error", err.Error()))
		return true, nil
	}
	return count.Val() <= int64(l.Limit), nil
}

func windowKey(key string, now time.Time, window time.Duration) string {
	bucket := now.Unix() / int64(window.Seconds())
	return fmt.Sprintf("querypilot:ratelimit:%s:%d", key, bucket)
}

func (l *RedisLimiter) clock() func() time.Time {
	if l.now != nil {
		return l.now
	}
	return time.Now
}

func (l *RedisLimiter) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.Logger
}
