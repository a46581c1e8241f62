package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/cinematch/cinematch/pkg/apperror"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/gin-gonic/gin"
)

// WindowCounter is implemented by cache.RedisClient.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimit allows limit requests per client ip in each window. Counter
// failures let the request through.
func RateLimit(counter WindowCounter, scope string, limit int, window time.Duration, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ratelimit:" + scope + ":" + c.ClientIP()
		count, remaining, err := counter.IncrWindow(c.Request.Context(), key, window)
		if err != nil {
			logger.WithError(err).WithField("scope", scope).Warn("Rate limiter unavailable")
			c.Next()
			return
		}

		left := int64(limit) - count
		if left < 0 {
			left = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(left, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(remaining.Seconds()), 10))

		if count > int64(limit) {
			c.Header("Retry-After", strconv.FormatInt(int64(remaining.Seconds()), 10))
			_ = c.Error(apperror.TooManyRequests("Too many requests, please try again later."))
			c.Abort()
			return
		}
		c.Next()
	}
}
