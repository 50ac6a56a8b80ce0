package ratelimit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HandleRateLimitStatus returns the configured limits, the limiter backend
// state and the rate limiting counters
func (rl *RateLimiter) HandleRateLimitStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ip": c.ClientIP(),
			"limits": gin.H{
				"ip_per_minute": gin.H{
					"limit":  rl.config.IPLimitPerMin,
					"period": "1 minute",
				},
				"collect_per_minute": gin.H{
					"limit":  rl.config.CollectLimitPerMin,
					"period": "1 minute",
				},
			},
			"limiter":   rl.GetStats(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}
