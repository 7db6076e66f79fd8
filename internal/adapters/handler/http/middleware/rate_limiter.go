package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const rateLimitKeyPrefix = "rate_limit:"

// RateLimiterMiddleware is a fixed-window limiter keyed by client IP. The
// counter and its TTL are read in one round trip, and a counter left
// without a TTL gets one on the next request. It fails open when Redis is
// unreachable.
func RateLimiterMiddleware(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := rateLimitKeyPrefix + c.ClientIP()

		var incr *redis.IntCmd
		var pttl *redis.DurationCmd
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pttl = pipe.PTTL(ctx, key)
			return nil
		})
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("rate limiter skipped")
			c.Next()
			return
		}

		count := incr.Val()
		ttl := pttl.Val()
		if ttl < 0 {
			if err := rdb.Expire(ctx, key, window).Err(); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("rate limiter window not set")
			}
			ttl = window
		}

		remaining := max(0, int64(limit)-count)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

		if count > int64(limit) {
			retry := int(ttl.Round(time.Second) / time.Second)
			c.Header("Retry-After", strconv.Itoa(max(1, retry)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":     "error",
				"message":    "Too many requests. Slow down!",
				"retry_in_s": retry,
			})
			return
		}

		c.Next()
	}
}
