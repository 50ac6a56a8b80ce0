package monitoring

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Logger provides structured JSON logging with domain helpers
type Logger struct {
	*slog.Logger
}

// NewLogger creates a logger at info level
func NewLogger() *Logger {
	return NewLoggerWithLevel("info")
}

// NewLoggerWithLevel creates a logger for the named level (debug, info, warn, error)
func NewLoggerWithLevel(level string) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     ParseLevel(level),
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// ParseLevel maps a level name to slog.Level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(method, path, ip, userAgent string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"user_agent", userAgent,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// AnalysisLogger logs a completed scoring run
func (l *Logger) AnalysisLogger(channel, tier string, videos int, score float64, verdict string, duration time.Duration, cacheHit bool) {
	l.Info("Analysis Completed",
		"channel", channel,
		"tier", tier,
		"videos", videos,
		"blc_score", score,
		"verdict", verdict,
		"duration_ms", duration.Milliseconds(),
		"cache_hit", cacheHit,
	)
}

// CollectionLogger logs a completed YouTube collection
func (l *Logger) CollectionLogger(channelID string, videos, comments int, duration time.Duration) {
	l.Info("Collection Completed",
		"channel_id", channelID,
		"videos", videos,
		"comments", comments,
		"duration_ms", duration.Milliseconds(),
	)
}

// APIErrorLogger logs API errors with caller context
func (l *Logger) APIErrorLogger(err error, method, path, ip string, statusCode int) {
	caller := "unknown"
	if _, file, line, ok := runtime.Caller(2); ok {
		caller = file + ":" + strconv.Itoa(line)
	}

	l.Error("API Error",
		"error", err.Error(),
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"caller", caller,
	)
}

// ExternalAPILogger logs calls to upstream APIs
func (l *Logger) ExternalAPILogger(apiName, operation string, quotaUnits int, duration time.Duration, success bool) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}

	l.Log(context.Background(), level, "External API Call",
		"api_name", apiName,
		"operation", operation,
		"quota_units", quotaUnits,
		"duration_ms", duration.Milliseconds(),
		"success", success,
	)
}

// CacheLogger logs cache operations
func (l *Logger) CacheLogger(operation, key string, hit bool, itemCount int) {
	l.Debug("Cache Operation",
		"operation", operation,
		"key_hash", ShortKey(key),
		"hit", hit,
		"cache_size", itemCount,
	)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

// ShortKey truncates a cache key or hash for log output
func ShortKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8] + "..."
}

var startTime = time.Now()

// Uptime returns the time since the process started
func Uptime() time.Duration {
	return time.Since(startTime)
}
