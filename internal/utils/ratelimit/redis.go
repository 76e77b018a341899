package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared by every replica.
// Each window allows Limit requests per client and category.
type RedisLimiter struct {
	redis  redis.UniversalClient
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisLimiter creates a Redis backed Checker.
//
// Parameters:
//   - client: The Redis client
//   - prefix: Key prefix shared with the rest of the service
//   - limit: Requests allowed per window
//   - window: Length of the counting window
func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		redis:  client,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
	}
}

// Allow implements Checker.
func (l *RedisLimiter) Allow(ctx context.Context, clientID, category string) (bool, time.Duration, error) {
	key := fmt.Sprintf("%srl:%s:%s", l.prefix, category, clientID)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit counter: %w", err)
	}

	// Fixed window: the TTL is only set by the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("rate limit expiry: %w", err)
		}
	}

	if count <= l.limit {
		return true, 0, nil
	}

	ttl, err := l.redis.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = l.window
	}
	return false, ttl, nil
}
