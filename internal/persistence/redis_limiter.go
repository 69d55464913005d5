package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAttemptLimiter counts failed attempts in Redis so every API instance
// shares the same counters.
type RedisAttemptLimiter struct {
	client redis.Cmdable
	prefix string
}

// NewRedisAttemptLimiter builds a limiter storing counters under prefix.
func NewRedisAttemptLimiter(client redis.Cmdable, prefix string) *RedisAttemptLimiter {
	if prefix == "" {
		prefix = "callcenter:"
	}
	return &RedisAttemptLimiter{client: client, prefix: prefix}
}

func (l *RedisAttemptLimiter) Failures(ctx context.Context, key string) (int, error) {
	n, err := l.client.Get(ctx, l.prefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// RecordFailure increments the counter and restarts its expiry window.
func (l *RedisAttemptLimiter) RecordFailure(ctx context.Context, key string, window time.Duration) (int, error) {
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, l.prefix+key)
		if window > 0 {
			pipe.Expire(ctx, l.prefix+key, window)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

func (l *RedisAttemptLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}
