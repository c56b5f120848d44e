package middlewares

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter is the multi-replica Limiter: a fixed window per key held in
// redis so every instance sees the same counter. Fails open if redis is
// unreachable; a blocked sign-in is worse than an unthrottled one.
type RedisLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

func (rl *RedisLimiter) Allow(c *gin.Context, key string) (bool, time.Duration) {
	ctx := c.Request.Context()

	redisKey := fmt.Sprintf("ratelimit:%s:%s", rl.prefix, key)

	count, err := rl.rdb.Incr(ctx, redisKey).Result()

	if err != nil {
		return true, 0
	}

	if count == 1 {
		// First hit opens the window.
		_ = rl.rdb.Expire(ctx, redisKey, rl.window).Err()
	}

	if count > int64(rl.limit) {
		ttl, err := rl.rdb.TTL(ctx, redisKey).Result()

		if err != nil || ttl < 0 {
			ttl = rl.window
		}

		return false, ttl
	}

	return true, 0
}
