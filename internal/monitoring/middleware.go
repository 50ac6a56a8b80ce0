package monitoring

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const slowRequestThreshold = 5 * time.Second

// MonitoringMiddleware creates Gin middleware for request monitoring
func MonitoringMiddleware(metrics *Metrics, logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		metrics.IncrementRequest()
		metrics.inFlight.Inc()
		defer metrics.inFlight.Dec()

		ip := c.ClientIP()
		userAgent := c.GetHeader("User-Agent")
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		// FullPath keeps label cardinality bounded; unmatched routes share one label
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.RecordResponseTime(duration)
		metrics.RecordRequestByStatus(statusCode)
		metrics.ObserveRequest(route, method, strconv.Itoa(statusCode), duration)

		if statusCode >= 400 {
			metrics.IncrementError()
		}

		logger.RequestLogger(method, path, ip, userAgent, statusCode, duration)

		for _, err := range c.Errors {
			logger.APIErrorLogger(err.Err, method, path, ip, statusCode)
		}

		if duration > slowRequestThreshold {
			logger.Warn("Slow Request",
				"method", method,
				"path", path,
				"duration_ms", duration.Milliseconds(),
			)
		}

		if statusCode >= 500 {
			logger.SystemLogger("server_error_response", fmt.Sprintf("Status %d for %s %s", statusCode, method, path))
		}
	}
}

// MetricsHandler serves the JSON view of the in-process counters
func MetricsHandler(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.GetStats())
	}
}

// PrometheusHandler serves the Prometheus exposition
func PrometheusHandler(metrics *Metrics) gin.HandlerFunc {
	return gin.WrapH(metrics.Handler())
}
