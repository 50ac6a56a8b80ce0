package ratelimit

import (
	"log/slog"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/blc-o-meter/internal/errors"
)

// IPRateLimitMiddleware applies the general per-IP limit
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.AllowIP(c.Request.Context(), ip)
		if err != nil {
			slog.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			rl.metrics.IncrementRateLimitIPBlock()
			rl.reject(c, result)
			return
		}

		c.Next()
	}
}

// EndpointRateLimitMiddleware applies a tighter per-IP limit to one route
// group. The YouTube-backed routes use it to protect the API quota.
func (rl *RateLimiter) EndpointRateLimitMiddleware(endpoint string, limitPerMin int) gin.HandlerFunc {
	r := PerMinute(limitPerMin)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		key := "ratelimit:endpoint:" + endpoint + ":" + ip

		result, err := rl.Allow(c.Request.Context(), key, r)
		if err != nil {
			slog.Error("Endpoint rate limit check failed", "endpoint", endpoint, "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Endpoint-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Endpoint-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			rl.metrics.IncrementRateLimitEndpoint(endpoint)
			rl.reject(c, result)
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) reject(c *gin.Context, result *Result) {
	c.Header("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
	apperrors.Abort(c, apperrors.NewRateLimitError(result.RetryAfter))
}
