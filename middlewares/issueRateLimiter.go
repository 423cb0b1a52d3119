package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const issueLimitWindow = 24 * time.Hour

// IssueRateLimiter caps the number of issues a user may create per 24h
// window. A nil client disables the limit. Redis errors let the request
// through and are logged.
func IssueRateLimiter(rdb *redis.Client, prefix string, limit int, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}
		userID := c.GetString(ContextUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		ctx := c.Request.Context()
		userKey := prefix + ":" + userID

		count, err := rdb.Incr(ctx, userKey).Result()
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("user_id", userID), zap.Error(err))
			c.Next()
			return
		}

		// Set TTL only for the first increment
		if count == 1 {
			if err := rdb.Expire(ctx, userKey, issueLimitWindow).Err(); err != nil {
				log.Warn("rate limiter ttl not set", zap.String("key", userKey), zap.Error(err))
			}
		}

		if count > int64(limit) {
			retryAfter, _ := rdb.TTL(ctx, userKey).Result()
			c.Header("Retry-After", formatSeconds(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retryAfter.Seconds(),
			})
			return
		}

		c.Next()
	}
}

func formatSeconds(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return strconv.Itoa(int(d.Round(time.Second).Seconds()))
}
