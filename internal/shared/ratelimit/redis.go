package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// RedisLimiter is a sliding-window limiter over a redis sorted set.
// Each admitted request is one member scored by its timestamp.
type RedisLimiter struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisLimiter returns nil when client is nil; a nil limiter admits everything.
func NewRedisLimiter(client redis.UniversalClient) *RedisLimiter {
	if client == nil {
		return nil
	}
	return &RedisLimiter{client: client, now: time.Now}
}

// Allow admits one request for key if fewer than limit were admitted within window.
// The trim, add and count run in one MULTI so concurrent callers see each other;
// a rejected request removes its own member again.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	if l == nil {
		return true, limit, nil
	}
	fullKey := keyPrefix + key
	now := l.now()
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()
	windowStart := now.Add(-window).UnixNano()

	var countCmd *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, fullKey, "0", fmt.Sprintf("%d", windowStart))
		pipe.ZAdd(ctx, fullKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
		countCmd = pipe.ZCard(ctx, fullKey)
		pipe.Expire(ctx, fullKey, window)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}

	count := int(countCmd.Val())
	if count > limit {
		if err := l.client.ZRem(ctx, fullKey, member).Err(); err != nil {
			return false, 0, fmt.Errorf("rate limit %s: %w", key, err)
		}
		return false, 0, nil
	}
	return true, limit - count, nil
}
