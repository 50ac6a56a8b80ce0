package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/monitoring"
)

// Config holds rate limiter configuration
type Config struct {
	IPLimitPerMin      int           // all API routes, per client IP
	CollectLimitPerMin int           // YouTube-backed routes, per client IP
	BurstMultiplier    int           // fallback bucket size as a multiple of the limit
	CleanupInterval    time.Duration // idle fallback limiters are dropped after this
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		IPLimitPerMin:      60,
		CollectLimitPerMin: 5,
		BurstMultiplier:    1,
		CleanupInterval:    10 * time.Minute,
	}
}

// Rate is a number of requests allowed per period
type Rate struct {
	Limit  int
	Period time.Duration
}

// PerMinute returns a Rate of n requests per minute
func PerMinute(n int) Rate {
	return Rate{Limit: n, Period: time.Minute}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool          `json:"allowed"`
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	ResetAt    time.Time     `json:"reset_at"`
	RetryAfter time.Duration `json:"retry_after"`
}

type fallbackEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter provides distributed rate limiting with Redis and in-memory fallback
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      *monitoring.Metrics

	fallbackMutex    sync.Mutex
	fallbackLimiters map[string]*fallbackEntry

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a new rate limiter with Redis and in-memory fallback
func NewRateLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *RateLimiter {
	defaults := DefaultConfig()
	if config.IPLimitPerMin <= 0 {
		config.IPLimitPerMin = defaults.IPLimitPerMin
	}
	if config.CollectLimitPerMin <= 0 {
		config.CollectLimitPerMin = defaults.CollectLimitPerMin
	}
	if config.BurstMultiplier <= 0 {
		config.BurstMultiplier = defaults.BurstMultiplier
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	rl := &RateLimiter{
		redisClient:      redisClient,
		config:           config,
		metrics:          metrics,
		fallbackLimiters: make(map[string]*fallbackEntry),
		stop:             make(chan struct{}),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.Client())
		slog.Info("Redis rate limiter initialized")
	} else {
		slog.Warn("Redis unavailable, using in-memory rate limiting only")
	}

	go rl.cleanupLoop()

	return rl
}

// Config returns the effective configuration
func (rl *RateLimiter) Config() Config {
	return rl.config
}

// AllowIP checks the general per-minute limit for an IP address
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	return rl.Allow(ctx, "ratelimit:ip:"+ip, PerMinute(rl.config.IPLimitPerMin))
}

// Allow checks key against r using Redis, or the in-memory limiter when
// Redis is disabled or failing.
func (rl *RateLimiter) Allow(ctx context.Context, key string, r Rate) (*Result, error) {
	if r.Limit <= 0 || r.Period <= 0 {
		return nil, fmt.Errorf("invalid rate %d/%s", r.Limit, r.Period)
	}

	if rl.redisClient.IsEnabled() && rl.redisLimiter != nil {
		result, err := rl.allowRedis(ctx, key, r)
		if err == nil {
			return result, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
		rl.metrics.IncrementRateLimitRedisError()
	}

	rl.metrics.IncrementRateLimitFallback()
	return rl.allowFallback(key, r), nil
}

// allowRedis uses the redis_rate GCRA limiter
func (rl *RateLimiter) allowRedis(ctx context.Context, key string, r Rate) (*Result, error) {
	res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   r.Limit,
		Burst:  r.Limit,
		Period: r.Period,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	result := &Result{
		Allowed:   res.Allowed > 0,
		Limit:     res.Limit.Rate,
		Remaining: res.Remaining,
		ResetAt:   time.Now().Add(res.ResetAfter),
	}
	if !result.Allowed {
		result.RetryAfter = res.RetryAfter
	}
	return result, nil
}

// allowFallback uses a per-key token bucket
func (rl *RateLimiter) allowFallback(key string, r Rate) *Result {
	now := time.Now()
	interval := r.Period / time.Duration(r.Limit)

	rl.fallbackMutex.Lock()
	entry, exists := rl.fallbackLimiters[key]
	if !exists {
		entry = &fallbackEntry{
			limiter: rate.NewLimiter(rate.Every(interval), r.Limit*rl.config.BurstMultiplier),
		}
		rl.fallbackLimiters[key] = entry
	}
	entry.lastSeen = now
	rl.fallbackMutex.Unlock()

	allowed := entry.limiter.AllowN(now, 1)
	tokens := entry.limiter.TokensAt(now)

	result := &Result{
		Allowed:   allowed,
		Limit:     r.Limit,
		Remaining: max(int(tokens), 0),
	}

	missing := float64(entry.limiter.Burst()) - tokens
	result.ResetAt = now.Add(time.Duration(missing * float64(interval)))

	if !allowed {
		result.RetryAfter = time.Duration((1 - tokens) * float64(interval))
		if result.RetryAfter < time.Second {
			result.RetryAfter = time.Second
		}
	}
	return result
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup drops fallback limiters idle for longer than CleanupInterval
func (rl *RateLimiter) cleanup() int {
	cutoff := time.Now().Add(-rl.config.CleanupInterval)

	rl.fallbackMutex.Lock()
	defer rl.fallbackMutex.Unlock()

	removed := 0
	for key, entry := range rl.fallbackLimiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.fallbackLimiters, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Cleaned up fallback rate limiters", "removed", removed, "remaining", len(rl.fallbackLimiters))
	}
	return removed
}

// Reset clears the counters for key in both backends
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	rl.fallbackMutex.Lock()
	delete(rl.fallbackLimiters, key)
	rl.fallbackMutex.Unlock()

	if rl.redisClient.IsEnabled() && rl.redisLimiter != nil {
		if err := rl.redisLimiter.Reset(ctx, key); err != nil {
			return fmt.Errorf("failed to reset rate limit: %w", err)
		}
	}
	return nil
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.fallbackMutex.Lock()
	fallbackCount := len(rl.fallbackLimiters)
	rl.fallbackMutex.Unlock()

	return map[string]interface{}{
		"redis_enabled":     rl.redisClient.IsEnabled(),
		"fallback_limiters": fallbackCount,
		"redis_pool":        rl.redisClient.PoolStats(),
		"config": map[string]interface{}{
			"ip_limit_per_min":      rl.config.IPLimitPerMin,
			"collect_limit_per_min": rl.config.CollectLimitPerMin,
			"burst_multiplier":      rl.config.BurstMultiplier,
		},
		"metrics": rl.metrics.GetRateLimitStats(),
	}
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() error {
	rl.stopOnce.Do(func() { close(rl.stop) })
	return nil
}
