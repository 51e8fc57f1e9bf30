package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"studyassist-backend/internal/shared/telemetry"
)

// RedisLimiter implements fixed-window counters shared across instances.
// Window length derives from the rule: burst requests per burst/rate seconds.
type RedisLimiter struct {
	client  *redis.Client
	timeout time.Duration
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client, timeout: 500 * time.Millisecond}
}

func (l *RedisLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || l.client == nil {
		return true, 0
	}
	if rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}

	window := time.Duration(float64(rule.Burst)/rule.Rate*1000.0) * time.Millisecond
	if window <= 0 {
		window = time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	bucket := time.Now().UnixMilli() / window.Milliseconds()
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open on redis errors.
		telemetry.Error("ratelimit.redis_failed", map[string]any{"err": err.Error()})
		return true, 0
	}

	if incr.Val() <= int64(rule.Burst) {
		return true, 0
	}

	elapsed := time.Duration(time.Now().UnixMilli()%window.Milliseconds()) * time.Millisecond
	return false, window - elapsed
}

var _ Limiter = (*RedisLimiter)(nil)
