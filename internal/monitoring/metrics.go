package monitoring

import (
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxResponseSamples = 1000

// Metrics holds application metrics. Counters are kept in-process for the
// JSON /metrics endpoint and mirrored into Prometheus collectors.
type Metrics struct {
	RequestCount        int64
	ErrorCount          int64
	CacheHits           int64
	CacheMisses         int64
	AnalysisCount       int64
	YouTubeAPICalls     int64
	QuotaErrors         int64
	CommentsDisabled    int64
	AverageResponseTime int64 // in nanoseconds
	StartTime           time.Time

	ResponseTimes      []time.Duration
	ResponseTimesMutex sync.RWMutex

	RequestCountByStatus map[int]int64
	StatusMutex          sync.RWMutex

	VerdictCounts map[string]int64
	TierCounts    map[string]int64
	AnalysisMutex sync.RWMutex

	CircuitBreakerOpens  int64
	CircuitBreakerCloses int64

	ExternalAPIRequests   map[string]int64
	ExternalAPIErrorCount map[string]int64
	ExternalAPIMutex      sync.RWMutex

	RateLimitIPBlocks       int64
	RateLimitRedisErrors    int64
	RateLimitFallbackCount  int64
	RateLimitEndpointBlocks map[string]int64
	RateLimitMutex          sync.RWMutex

	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	analyses        *prometheus.CounterVec
	blcScores       prometheus.Histogram
	externalCalls   *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	rateLimitBlocks *prometheus.CounterVec
	inFlight        prometheus.Gauge
}

// NewMetrics creates a metrics instance with its own Prometheus registry
func NewMetrics() *Metrics {
	m := &Metrics{
		StartTime:               time.Now(),
		ResponseTimes:           make([]time.Duration, 0, maxResponseSamples),
		RequestCountByStatus:    make(map[int]int64),
		VerdictCounts:           make(map[string]int64),
		TierCounts:              make(map[string]int64),
		ExternalAPIRequests:     make(map[string]int64),
		ExternalAPIErrorCount:   make(map[string]int64),
		RateLimitEndpointBlocks: make(map[string]int64),
		registry:                prometheus.NewRegistry(),
	}

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blc_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route, method and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	m.analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blc_analyses_total",
			Help: "Channel analyses completed, by tier and verdict.",
		},
		[]string{"tier", "verdict"},
	)

	m.blcScores = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "blc_score",
			Help:    "Distribution of computed BLC scores.",
			Buckets: []float64{10, 20, 35, 50, 65, 80, 90, 100},
		},
	)

	m.externalCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blc_external_api_requests_total",
			Help: "Upstream API requests, by api and outcome.",
		},
		[]string{"api", "outcome"},
	)

	m.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blc_cache_lookups_total",
			Help: "Response cache lookups, by result.",
		},
		[]string{"result"},
	)

	m.rateLimitBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blc_rate_limit_blocks_total",
			Help: "Requests rejected by the rate limiter, by endpoint.",
		},
		[]string{"endpoint"},
	)

	m.inFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "blc_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	m.registry.MustRegister(
		m.requestDuration,
		m.analyses,
		m.blcScores,
		m.externalCalls,
		m.cacheLookups,
		m.rateLimitBlocks,
		m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the Prometheus exposition for this instance
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
	m.cacheLookups.WithLabelValues("hit").Inc()
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// RecordAnalysis records a completed scoring run
func (m *Metrics) RecordAnalysis(tier, verdict string, score float64) {
	atomic.AddInt64(&m.AnalysisCount, 1)

	m.AnalysisMutex.Lock()
	m.TierCounts[tier]++
	m.VerdictCounts[verdict]++
	m.AnalysisMutex.Unlock()

	m.analyses.WithLabelValues(tier, verdict).Inc()
	m.blcScores.Observe(score)
}

// IncrementYouTubeCalls increments the YouTube Data API call count
func (m *Metrics) IncrementYouTubeCalls() {
	atomic.AddInt64(&m.YouTubeAPICalls, 1)
}

// IncrementQuotaError counts a quota-exhausted response from an upstream API
func (m *Metrics) IncrementQuotaError() {
	atomic.AddInt64(&m.QuotaErrors, 1)
}

// IncrementCommentsDisabled counts videos whose comment threads were forbidden
func (m *Metrics) IncrementCommentsDisabled() {
	atomic.AddInt64(&m.CommentsDisabled, 1)
}

// RecordResponseTime records response time for averaging and percentiles
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	current := atomic.LoadInt64(&m.AverageResponseTime)
	newAverage := (current + duration.Nanoseconds()) / 2
	atomic.StoreInt64(&m.AverageResponseTime, newAverage)

	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = append(m.ResponseTimes, duration)
	if len(m.ResponseTimes) > maxResponseSamples {
		m.ResponseTimes = m.ResponseTimes[1:]
	}
	m.ResponseTimesMutex.Unlock()
}

// ObserveRequest records a finished request in the Prometheus histogram
func (m *Metrics) ObserveRequest(route, method, status string, duration time.Duration) {
	m.requestDuration.WithLabelValues(route, method, status).Observe(duration.Seconds())
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.StatusMutex.Lock()
	defer m.StatusMutex.Unlock()
	m.RequestCountByStatus[statusCode]++
}

// IncrementCircuitBreakerOpen increments circuit breaker open count
func (m *Metrics) IncrementCircuitBreakerOpen() {
	atomic.AddInt64(&m.CircuitBreakerOpens, 1)
}

// IncrementCircuitBreakerClose increments circuit breaker close count
func (m *Metrics) IncrementCircuitBreakerClose() {
	atomic.AddInt64(&m.CircuitBreakerCloses, 1)
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(apiName string, success bool) {
	m.ExternalAPIMutex.Lock()
	m.ExternalAPIRequests[apiName]++
	if !success {
		m.ExternalAPIErrorCount[apiName]++
	}
	m.ExternalAPIMutex.Unlock()

	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.externalCalls.WithLabelValues(apiName, outcome).Inc()
}

// GetPercentileResponseTime calculates percentile response time
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	m.ResponseTimesMutex.RLock()
	defer m.ResponseTimesMutex.RUnlock()

	if len(m.ResponseTimes) == 0 {
		return 0
	}

	times := make([]time.Duration, len(m.ResponseTimes))
	copy(times, m.ResponseTimes)

	sort.Slice(times, func(i, j int) bool {
		return times[i] < times[j]
	})

	index := int(float64(len(times)-1) * percentile / 100.0)
	if index >= len(times) {
		index = len(times) - 1
	}

	return times[index]
}

// GetStatusCodeDistribution returns request count by status code
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.StatusMutex.RLock()
	defer m.StatusMutex.RUnlock()

	distribution := make(map[int]int64, len(m.RequestCountByStatus))
	for code, count := range m.RequestCountByStatus {
		distribution[code] = count
	}
	return distribution
}

// GetAnalysisStats returns analysis counts by tier and verdict
func (m *Metrics) GetAnalysisStats() map[string]interface{} {
	m.AnalysisMutex.RLock()
	defer m.AnalysisMutex.RUnlock()

	tiers := make(map[string]int64, len(m.TierCounts))
	for k, v := range m.TierCounts {
		tiers[k] = v
	}
	verdicts := make(map[string]int64, len(m.VerdictCounts))
	for k, v := range m.VerdictCounts {
		verdicts[k] = v
	}

	return map[string]interface{}{
		"total":      atomic.LoadInt64(&m.AnalysisCount),
		"by_tier":    tiers,
		"by_verdict": verdicts,
	}
}

// GetExternalAPIStats returns external API statistics
func (m *Metrics) GetExternalAPIStats() map[string]interface{} {
	m.ExternalAPIMutex.RLock()
	defer m.ExternalAPIMutex.RUnlock()

	stats := make(map[string]interface{})
	for api, requests := range m.ExternalAPIRequests {
		errors := m.ExternalAPIErrorCount[api]
		errorRate := float64(0)
		if requests > 0 {
			errorRate = float64(errors) / float64(requests) * 100
		}

		stats[api] = map[string]interface{}{
			"requests":   requests,
			"errors":     errors,
			"error_rate": errorRate,
		}
	}
	return stats
}

// GetStats returns current metrics statistics
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errors := atomic.LoadInt64(&m.ErrorCount)
	cacheHits := atomic.LoadInt64(&m.CacheHits)
	cacheMisses := atomic.LoadInt64(&m.CacheMisses)
	avgResponseTime := atomic.LoadInt64(&m.AverageResponseTime)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
	}

	cacheHitRate := float64(0)
	totalCacheRequests := cacheHits + cacheMisses
	if totalCacheRequests > 0 {
		cacheHitRate = float64(cacheHits) / float64(totalCacheRequests) * 100
	}

	return map[string]interface{}{
		"uptime_seconds":         time.Since(m.StartTime).Seconds(),
		"total_requests":         requests,
		"error_count":            errors,
		"error_rate_percent":     errorRate,
		"cache_hits":             cacheHits,
		"cache_misses":           cacheMisses,
		"cache_hit_rate_percent": cacheHitRate,
		"youtube_api_calls":      atomic.LoadInt64(&m.YouTubeAPICalls),
		"quota_errors":           atomic.LoadInt64(&m.QuotaErrors),
		"comments_disabled":      atomic.LoadInt64(&m.CommentsDisabled),
		"avg_response_time_ms":   float64(avgResponseTime) / 1000000,
		"start_time":             m.StartTime.Format(time.RFC3339),

		"p50_response_time_ms":     float64(m.GetPercentileResponseTime(50)) / 1000000,
		"p95_response_time_ms":     float64(m.GetPercentileResponseTime(95)) / 1000000,
		"p99_response_time_ms":     float64(m.GetPercentileResponseTime(99)) / 1000000,
		"status_code_distribution": m.GetStatusCodeDistribution(),
		"external_api_stats":       m.GetExternalAPIStats(),
		"analyses":                 m.GetAnalysisStats(),

		"circuit_breaker_opens":  atomic.LoadInt64(&m.CircuitBreakerOpens),
		"circuit_breaker_closes": atomic.LoadInt64(&m.CircuitBreakerCloses),
		"rate_limit":             m.GetRateLimitStats(),
	}
}

// Ensure Metrics implements cache.Metrics interface
var _ interface {
	IncrementCacheHit()
	IncrementCacheMiss()
} = (*Metrics)(nil)

// Reset resets the in-process counters (useful for testing). Prometheus
// collectors are cumulative and are left untouched.
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.RequestCount, 0)
	atomic.StoreInt64(&m.ErrorCount, 0)
	atomic.StoreInt64(&m.CacheHits, 0)
	atomic.StoreInt64(&m.CacheMisses, 0)
	atomic.StoreInt64(&m.AnalysisCount, 0)
	atomic.StoreInt64(&m.YouTubeAPICalls, 0)
	atomic.StoreInt64(&m.QuotaErrors, 0)
	atomic.StoreInt64(&m.CommentsDisabled, 0)
	atomic.StoreInt64(&m.AverageResponseTime, 0)
	atomic.StoreInt64(&m.CircuitBreakerOpens, 0)
	atomic.StoreInt64(&m.CircuitBreakerCloses, 0)
	atomic.StoreInt64(&m.RateLimitIPBlocks, 0)
	atomic.StoreInt64(&m.RateLimitRedisErrors, 0)
	atomic.StoreInt64(&m.RateLimitFallbackCount, 0)

	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = m.ResponseTimes[:0]
	m.ResponseTimesMutex.Unlock()

	m.StatusMutex.Lock()
	m.RequestCountByStatus = make(map[int]int64)
	m.StatusMutex.Unlock()

	m.AnalysisMutex.Lock()
	m.TierCounts = make(map[string]int64)
	m.VerdictCounts = make(map[string]int64)
	m.AnalysisMutex.Unlock()

	m.ExternalAPIMutex.Lock()
	m.ExternalAPIRequests = make(map[string]int64)
	m.ExternalAPIErrorCount = make(map[string]int64)
	m.ExternalAPIMutex.Unlock()

	m.RateLimitMutex.Lock()
	m.RateLimitEndpointBlocks = make(map[string]int64)
	m.RateLimitMutex.Unlock()

	m.StartTime = time.Now()
}

// IncrementRateLimitIPBlock increments IP-based rate limit blocks
func (m *Metrics) IncrementRateLimitIPBlock() {
	atomic.AddInt64(&m.RateLimitIPBlocks, 1)
}

// IncrementRateLimitRedisError increments Redis error count for rate limiting
func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedisErrors, 1)
}

// IncrementRateLimitFallback increments fallback rate limiter usage count
func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.RateLimitFallbackCount, 1)
}

// IncrementRateLimitEndpoint increments rate limit blocks for a specific endpoint
func (m *Metrics) IncrementRateLimitEndpoint(endpoint string) {
	m.RateLimitMutex.Lock()
	m.RateLimitEndpointBlocks[endpoint]++
	m.RateLimitMutex.Unlock()

	m.rateLimitBlocks.WithLabelValues(endpoint).Inc()
}

// GetRateLimitStats returns rate limiting statistics
func (m *Metrics) GetRateLimitStats() map[string]interface{} {
	m.RateLimitMutex.RLock()
	endpointBlocksCopy := make(map[string]int64, len(m.RateLimitEndpointBlocks))
	for k, v := range m.RateLimitEndpointBlocks {
		endpointBlocksCopy[k] = v
	}
	m.RateLimitMutex.RUnlock()

	return map[string]interface{}{
		"ip_blocks":       atomic.LoadInt64(&m.RateLimitIPBlocks),
		"redis_errors":    atomic.LoadInt64(&m.RateLimitRedisErrors),
		"fallback_count":  atomic.LoadInt64(&m.RateLimitFallbackCount),
		"endpoint_blocks": endpointBlocksCopy,
	}
}
