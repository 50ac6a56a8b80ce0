package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/adapters"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/cache"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/config"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/database"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/leaderboard"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/privacy"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T, withYouTube bool) *gin.Engine {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	cfg := &config.Config{
		DataDir:                dir,
		CacheTTL:               time.Minute,
		RateLimitPerMin:        1000,
		CollectRateLimitPerMin: 2,
		MaxVideos:              50,
		MonthsBack:             6,
		MaxComments:            100,
		CommentWorkers:         4,
		DefaultVertical:        analysis.DefaultVertical,
		RetentionDays:          365,
		CORSOrigins:            []string{"*"},
	}

	db, err := database.NewDB(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	redisClient, err := ratelimit.NewRedisClient(ctx, "", "", 0)
	require.NoError(t, err)

	metrics := monitoring.NewMetrics()
	logger := monitoring.NewLoggerWithLevel("error")
	appCache := cache.NewCache(cache.NewMemoryStore(0), cfg.CacheTTL, metrics, logger)

	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.Config{
		IPLimitPerMin:      cfg.RateLimitPerMin,
		CollectLimitPerMin: cfg.CollectRateLimitPerMin,
	}, metrics)
	t.Cleanup(func() { _ = limiter.Close() })

	var youtube *adapters.YouTubeAdapter
	if withYouTube {
		youtube, err = adapters.NewYouTubeAdapter(ctx, adapters.YouTubeConfig{APIKey: "test-key"}, metrics, logger)
		require.NoError(t, err)
	}

	lbCache := leaderboard.NewLeaderboardCache(appCache)
	srv := newServer(serverDeps{
		Config:      cfg,
		DB:          db,
		Redis:       redisClient,
		Cache:       appCache,
		Limiter:     limiter,
		Analyzer:    analysis.NewAnalyzer(cfg.BenchmarkDir(), analysis.WithLogger(logger.Logger)),
		YouTube:     youtube,
		Leaderboard: leaderboard.NewService(db, lbCache),
		Privacy:     privacy.NewService(db, lbCache, cfg.RetentionDays, privacy.WithResponseCache(appCache)),
		Metrics:     metrics,
		Logger:      logger,
	})
	return srv.routes()
}

func bundleJSON(channelID, name string, subscribers int64) string {
	published := time.Now().UTC().AddDate(0, 0, -10).Format(time.RFC3339)
	videos := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		videos = append(videos, fmt.Sprintf(`{
			"video_id": "v%d",
			"title": "GRWM routine %d",
			"published_at": %q,
			"duration_seconds": 480,
			"view_count": %d,
			"like_count": %d,
			"comment_count": 40,
			"comments": ["where can I buy this?", "this broke me out", "love it"]
		}`, i, i, published, 20000+i*5000, 900+i*50))
	}
	return fmt.Sprintf(`{
		"channel": {
			"channel_id": %q,
			"channel_name": %q,
			"subscriber_count": %d,
			"total_views": 9000000,
			"video_count": 240
		},
		"videos": [%s]
	}`, channelID, name, subscribers, strings.Join(videos, ","))
}

func do(r *gin.Engine, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func analyze(t *testing.T, r *gin.Engine, body string) string {
	t.Helper()
	w := do(r, http.MethodPost, "/analyze", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	id, _ := decode(t, w)["analysis_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealthEndpoint(t *testing.T) {
	r := setupRouter(t, false)

	w := do(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, version, body["version"])

	deps := body["dependencies"].(map[string]interface{})
	assert.Equal(t, "up", deps["sqlite"].(map[string]interface{})["status"])
	assert.Equal(t, "disabled", deps["redis"].(map[string]interface{})["status"])
	assert.Equal(t, "disabled", deps["youtube"].(map[string]interface{})["status"])

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestHealthEndpoint_WithYouTube(t *testing.T) {
	r := setupRouter(t, true)

	body := decode(t, do(r, http.MethodGet, "/health", ""))
	youtube := body["dependencies"].(map[string]interface{})["youtube"].(map[string]interface{})
	assert.Equal(t, "configured", youtube["status"])
	assert.Contains(t, youtube, "circuit_breaker")
}

func TestAnalyzeEndpoint(t *testing.T) {
	r := setupRouter(t, false)
	body := bundleJSON("UCglow", "Glow Lab", 150_000)

	w := do(r, http.MethodPost, "/analyze", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	first := decode(t, w)
	id := first["analysis_id"].(string)
	assert.NotEmpty(t, id)
	assert.Equal(t, true, first["is_public"])

	report := first["report"].(map[string]interface{})
	assert.Equal(t, string(analysis.TierMid), report["tier"])
	assert.Equal(t, "Glow Lab", report["channel_name"])
	assert.Equal(t, float64(3), report["video_count_analyzed"])
	score := report["blc_score"].(float64)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)

	t.Run("identical body is served from cache", func(t *testing.T) {
		w := do(r, http.MethodPost, "/analyze", body)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
		assert.Equal(t, id, decode(t, w)["analysis_id"])
	})

	t.Run("stored analysis is retrievable", func(t *testing.T) {
		w := do(r, http.MethodGet, "/analyses/"+id, "")
		require.Equal(t, http.StatusOK, w.Code)
		stored := decode(t, w)
		assert.Equal(t, "UCglow", stored["channel_key"])
		assert.Equal(t, "beauty", stored["vertical"])
		assert.Equal(t, score, stored["blc_score"])
	})

	t.Run("channel history lists the run", func(t *testing.T) {
		w := do(r, http.MethodGet, "/channels/UCglow/analyses?limit=5", "")
		require.Equal(t, http.StatusOK, w.Code)
		history := decode(t, w)
		assert.Equal(t, float64(1), history["count"])
		assert.Equal(t, "UCglow", history["channel_key"])
	})
}

func TestAnalyzeEndpoint_BareBundle(t *testing.T) {
	r := setupRouter(t, false)

	wrapped := fmt.Sprintf(`{"bundle": %s, "vertical": "beauty", "is_public": false}`, bundleJSON("UCa", "A", 5_000))
	w := do(r, http.MethodPost, "/analyze", wrapped)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, false, body["is_public"])
	assert.Equal(t, string(analysis.TierEmerging), body["report"].(map[string]interface{})["tier"])

	w = do(r, http.MethodPost, "/analyze", bundleJSON("UCb", "B", 600_000))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, string(analysis.TierMajor), decode(t, w)["report"].(map[string]interface{})["tier"])
}

func TestAnalyzeEndpoint_InvalidRequests(t *testing.T) {
	r := setupRouter(t, false)

	tests := []struct {
		name           string
		body           string
		contentType    string
		expectedStatus int
	}{
		{"empty object", `{}`, "application/json", http.StatusBadRequest},
		{"malformed json", `{"channel":`, "application/json", http.StatusBadRequest},
		{"missing videos", `{"channel": {"channel_name": "x", "subscriber_count": 10}}`, "application/json", http.StatusBadRequest},
		{"negative subscribers", `{"channel": {"channel_name": "x", "subscriber_count": -1}, "videos": []}`, "application/json", http.StatusBadRequest},
		{"invalid vertical", fmt.Sprintf(`{"bundle": %s, "vertical": "../etc"}`, bundleJSON("UCx", "X", 10)), "application/json", http.StatusBadRequest},
		{"plain text body", `hello`, "text/plain", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/analyze", tt.body, "Content-Type", tt.contentType)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			assert.NotEqual(t, "HIT", w.Header().Get("X-Cache"))
		})
	}
}

func TestAnalyzeEndpoint_ZeroVideos(t *testing.T) {
	r := setupRouter(t, false)

	w := do(r, http.MethodPost, "/analyze", `{"channel": {"channel_name": "Empty", "subscriber_count": 50000}, "videos": []}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	report := decode(t, w)["report"].(map[string]interface{})
	assert.Equal(t, float64(0), report["video_count_analyzed"])
	assert.Equal(t, string(analysis.TierRising), report["tier"])
}

func TestAnalyzeEndpoint_Compression(t *testing.T) {
	r := setupRouter(t, false)

	w := do(r, http.MethodPost, "/analyze", bundleJSON("UCz", "Zed", 20_000), "Accept-Encoding", "gzip")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	reader, err := gzip.NewReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	raw, err := io.ReadAll(reader)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.NotEmpty(t, body["analysis_id"])
}

func TestGetAnalysis_NotFound(t *testing.T) {
	r := setupRouter(t, false)

	w := do(r, http.MethodGet, "/analyses/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChannelHistory_InvalidLimit(t *testing.T) {
	r := setupRouter(t, false)

	w := do(r, http.MethodGet, "/channels/UCglow/analyses?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/channels/UCnothing/analyses", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["count"])
}

func TestLeaderboardEndpoints(t *testing.T) {
	r := setupRouter(t, false)

	analyze(t, r, bundleJSON("UCmid", "Mid Channel", 150_000))
	analyze(t, r, bundleJSON("UCsmall", "Small Channel", 20_000))
	analyze(t, r, fmt.Sprintf(`{"bundle": %s, "is_public": false}`, bundleJSON("UChidden", "Hidden", 150_000)))

	w := do(r, http.MethodPost, "/leaderboard/update", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	entries := decode(t, w)["entries"].(map[string]interface{})
	assert.Equal(t, float64(2), entries["all_time"])

	w = do(r, http.MethodGet, "/leaderboard/all_time", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	board := decode(t, w)
	assert.Equal(t, float64(2), board["total"])
	for _, e := range board["entries"].([]interface{}) {
		assert.NotEqual(t, "Hidden", e.(map[string]interface{})["channel_name"])
	}

	w = do(r, http.MethodGet, "/leaderboard/daily?tier="+string(analysis.TierMid), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	board = decode(t, w)
	require.Equal(t, float64(1), board["total"])
	entry := board["entries"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Mid Channel", entry["channel_name"])
	assert.Equal(t, float64(1), entry["tier_rank"])

	tests := []struct {
		name string
		path string
	}{
		{"unknown period", "/leaderboard/yearly"},
		{"unknown tier", "/leaderboard/weekly?tier=Tier_9"},
		{"non-numeric limit", "/leaderboard/weekly?limit=ten"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, tt.path, "").Code)
		})
	}
}

func TestCollectEndpoints_Disabled(t *testing.T) {
	r := setupRouter(t, false)

	for _, path := range []string{"/channels/collect", "/channels/analyze"} {
		t.Run(path, func(t *testing.T) {
			w := do(r, http.MethodPost, path, `{"channel": "@glowlab"}`)
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		})
	}
}

func TestCollectEndpoints_ValidationAndRateLimit(t *testing.T) {
	r := setupRouter(t, true)

	w := do(r, http.MethodPost, "/channels/collect", `{"channel": "javascript:alert(1)"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "180", w.Header().Get("X-Timeout"))

	w = do(r, http.MethodPost, "/channels/analyze", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/channels/collect", `{"channel": "<b></b>"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestPrivacyEndpoints(t *testing.T) {
	r := setupRouter(t, false)
	id := analyze(t, r, bundleJSON("UCglow", "Glow Lab", 150_000))

	w := do(r, http.MethodGet, "/privacy/policy", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(365), decode(t, w)["private_analysis_retention_days"])

	w = do(r, http.MethodGet, "/channels/UCglow/privacy", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	settings := decode(t, w)
	assert.Equal(t, float64(1), settings["total_analyses"])
	assert.Equal(t, float64(1), settings["public_analyses"])

	w = do(r, http.MethodPut, "/channels/UCglow/visibility", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, "/channels/UCglow/visibility", `{"is_public": false}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["analyses_affected"])

	w = do(r, http.MethodPut, "/channels/UCmissing/visibility", `{"is_public": true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodDelete, "/channels/UCglow/data", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["analyses_deleted"])

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/analyses/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/channels/UCglow/privacy", "").Code)

	// the same body is scored and stored again instead of replaying the deleted run
	w = do(r, http.MethodPost, "/analyze", bundleJSON("UCglow", "Glow Lab", 150_000))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.NotEqual(t, id, decode(t, w)["analysis_id"])
}

func TestBenchmarkEndpoints(t *testing.T) {
	r := setupRouter(t, false)

	w := do(r, http.MethodGet, "/benchmarks", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)
	assert.Equal(t, "beauty", list["default_vertical"])
	assert.Empty(t, list["overrides"])
	assert.Len(t, list["tiers"], len(analysis.Tiers))

	w = do(r, http.MethodGet, "/benchmarks/beauty", "")
	require.Equal(t, http.StatusOK, w.Code)
	table := decode(t, w)["benchmarks"].(map[string]interface{})
	for _, tier := range analysis.Tiers {
		assert.Contains(t, table, string(tier))
	}

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/benchmarks/BAD", "").Code)
}

func TestSwaggerDoc(t *testing.T) {
	r := setupRouter(t, false)

	w := do(r, http.MethodGet, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, w.Code)

	doc := decode(t, w)
	info := doc["info"].(map[string]interface{})
	assert.Equal(t, "BLC-o-meter API", info["title"])
	assert.Equal(t, version, info["version"])

	paths := doc["paths"].(map[string]interface{})
	for _, path := range []string{"/analyze", "/leaderboard/{period}", "/channels/{channel_id}/visibility"} {
		assert.Contains(t, paths, path)
	}
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "script-src 'self'")
}

func TestDiagnosticsEndpoints(t *testing.T) {
	r := setupRouter(t, false)
	analyze(t, r, bundleJSON("UCglow", "Glow Lab", 150_000))

	tests := []struct {
		path     string
		contains string
	}{
		{"/metrics", "total_requests"},
		{"/metrics/prometheus", "blc_"},
		{"/cache/stats", "backend"},
		{"/ratelimit/status", "collect_per_minute"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(r, http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/no-such-route", "").Code)
}
