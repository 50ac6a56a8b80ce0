package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/monitoring"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newFallbackLimiter(t *testing.T, config Config) (*RateLimiter, *monitoring.Metrics) {
	t.Helper()
	metrics := monitoring.NewMetrics()
	limiter := NewRateLimiter(&RedisClient{enabled: false}, config, metrics)
	t.Cleanup(func() { _ = limiter.Close() })
	return limiter, metrics
}

func TestRateLimiterFallbackMode(t *testing.T) {
	limiter, metrics := newFallbackLimiter(t, DefaultConfig())
	ctx := context.Background()
	key := "test:channel:123"

	for i := 0; i < 5; i++ {
		result, err := limiter.Allow(ctx, key, PerMinute(5))
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 5, result.Limit)
		assert.Equal(t, 4-i, result.Remaining)
	}

	result, err := limiter.Allow(ctx, key, PerMinute(5))
	require.NoError(t, err)
	assert.False(t, result.Allowed, "6th request should be blocked")
	assert.Greater(t, result.RetryAfter, time.Duration(0))
	assert.Equal(t, int64(6), metrics.GetRateLimitStats()["fallback_count"])
}

func TestRateLimiterBurstMultiplier(t *testing.T) {
	config := DefaultConfig()
	config.BurstMultiplier = 2
	limiter, _ := newFallbackLimiter(t, config)

	allowed := 0
	for i := 0; i < 15; i++ {
		result, err := limiter.Allow(context.Background(), "test:burst", PerMinute(5))
		require.NoError(t, err)
		if result.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 10, allowed)
}

func TestRateLimiterMultipleKeys(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, DefaultConfig())
	ctx := context.Background()

	for _, key := range []string{"ip:1", "ip:2", "ip:3"} {
		for i := 0; i < 3; i++ {
			result, err := limiter.Allow(ctx, key, PerMinute(3))
			require.NoError(t, err)
			assert.True(t, result.Allowed, "key %s request %d should be allowed", key, i+1)
		}

		result, err := limiter.Allow(ctx, key, PerMinute(3))
		require.NoError(t, err)
		assert.False(t, result.Allowed, "key %s 4th request should be blocked", key)
	}
}

func TestRateLimiterInvalidRate(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, DefaultConfig())

	_, err := limiter.Allow(context.Background(), "k", Rate{Limit: 0, Period: time.Minute})
	assert.Error(t, err)
	_, err = limiter.Allow(context.Background(), "k", Rate{Limit: 1})
	assert.Error(t, err)
}

func TestRateLimiterReset(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, DefaultConfig())
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, "k", PerMinute(1))
	result, _ := limiter.Allow(ctx, "k", PerMinute(1))
	require.False(t, result.Allowed)

	require.NoError(t, limiter.Reset(ctx, "k"))
	result, _ = limiter.Allow(ctx, "k", PerMinute(1))
	assert.True(t, result.Allowed)
}

func TestRateLimiterStats(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, Config{})

	for i := 0; i < 3; i++ {
		_, _ = limiter.Allow(context.Background(), "test:stats", PerMinute(5))
	}

	stats := limiter.GetStats()
	assert.False(t, stats["redis_enabled"].(bool))
	assert.Equal(t, 1, stats["fallback_limiters"])

	statsConfig := stats["config"].(map[string]interface{})
	assert.Equal(t, 60, statsConfig["ip_limit_per_min"])
	assert.Equal(t, 5, statsConfig["collect_limit_per_min"])
}

func TestRateLimiterCleanup(t *testing.T) {
	config := DefaultConfig()
	config.CleanupInterval = time.Hour
	limiter, _ := newFallbackLimiter(t, config)

	for i := 0; i < 20; i++ {
		_, _ = limiter.Allow(context.Background(), fmt.Sprintf("test:cleanup:%d", i), PerMinute(5))
	}
	assert.Equal(t, 0, limiter.cleanup(), "recently used limiters are kept")

	limiter.fallbackMutex.Lock()
	for _, entry := range limiter.fallbackLimiters {
		entry.lastSeen = time.Now().Add(-2 * time.Hour)
	}
	limiter.fallbackMutex.Unlock()

	assert.Equal(t, 20, limiter.cleanup())
	assert.Equal(t, 0, limiter.GetStats()["fallback_limiters"])
}

func TestRateLimiterConcurrency(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, DefaultConfig())
	rateLimit := PerMinute(100)

	var mu sync.Mutex
	allowed := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				result, err := limiter.Allow(context.Background(), "test:concurrent", rateLimit)
				assert.NoError(t, err)
				if result != nil && result.Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, allowed, 100)
	assert.LessOrEqual(t, allowed, 101)
}

func TestRateLimiterRedisFailureFallsBack(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	metrics := monitoring.NewMetrics()
	limiter := NewRateLimiter(&RedisClient{client: client, enabled: true, addr: "127.0.0.1:1"}, DefaultConfig(), metrics)
	defer limiter.Close()

	result, err := limiter.Allow(context.Background(), "k", PerMinute(2))
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	stats := metrics.GetRateLimitStats()
	assert.Equal(t, int64(1), stats["redis_errors"])
	assert.Equal(t, int64(1), stats["fallback_count"])
}

func TestNewRedisClient_Disabled(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "", "", 0)
	require.NoError(t, err)
	assert.False(t, client.IsEnabled())
	assert.Nil(t, client.Client())
	assert.Error(t, client.HealthCheck(context.Background()))
	assert.NoError(t, client.Close())
	assert.Equal(t, false, client.PoolStats()["enabled"])
}

func TestIPRateLimitMiddleware(t *testing.T) {
	config := DefaultConfig()
	config.IPLimitPerMin = 2
	limiter, metrics := newFallbackLimiter(t, config)

	router := gin.New()
	router.Use(limiter.IPRateLimitMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/ratelimit/status", limiter.HandleRateLimitStatus())

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		return w
	}

	first := get("/ping")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	status := get("/ratelimit/status")
	require.Equal(t, http.StatusOK, status.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(status.Body.Bytes(), &body))
	assert.Equal(t, "10.0.0.1", body["ip"])

	blocked := get("/ping")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.Contains(t, blocked.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.Equal(t, int64(1), metrics.GetRateLimitStats()["ip_blocks"])
}

func TestEndpointRateLimitMiddleware(t *testing.T) {
	limiter, metrics := newFallbackLimiter(t, DefaultConfig())

	router := gin.New()
	collect := router.Group("/channels", limiter.EndpointRateLimitMiddleware("collect", 1))
	collect.POST("/collect", func(c *gin.Context) { c.Status(http.StatusAccepted) })
	router.POST("/analyze", func(c *gin.Context) { c.Status(http.StatusOK) })

	post := func(path string) int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusAccepted, post("/channels/collect"))
	assert.Equal(t, http.StatusTooManyRequests, post("/channels/collect"))
	assert.Equal(t, http.StatusOK, post("/analyze"))

	blocks := metrics.GetRateLimitStats()["endpoint_blocks"].(map[string]int64)
	assert.Equal(t, int64(1), blocks["collect"])
}
