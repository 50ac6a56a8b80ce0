package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/adapters"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/cache"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/config"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/database"
	apperrors "github.com/ZanzyTHEbar/blc-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/leaderboard"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/middleware"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/privacy"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/ratelimit"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/security"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/types"
)

const version = "1.0.0"

// serverDeps are the constructed clients the HTTP layer is built from.
// YouTube may be nil, which disables the collection routes.
type serverDeps struct {
	Config      *config.Config
	DB          *database.DB
	Redis       *ratelimit.RedisClient
	Cache       *cache.Cache
	Limiter     *ratelimit.RateLimiter
	Analyzer    *analysis.Analyzer
	YouTube     *adapters.YouTubeAdapter
	Leaderboard *leaderboard.Service
	Privacy     *privacy.PrivacyService
	Metrics     *monitoring.Metrics
	Logger      *monitoring.Logger
}

type server struct {
	cfg         *config.Config
	db          *database.DB
	repo        *database.Repository
	redis       *ratelimit.RedisClient
	cache       *cache.Cache
	limiter     *ratelimit.RateLimiter
	analyzer    *analysis.Analyzer
	youtube     *adapters.YouTubeAdapter
	leaderboard *leaderboard.Service
	privacy     *privacy.PrivacyService
	security    *security.SecurityMiddleware
	compression *middleware.CompressionMiddleware
	metrics     *monitoring.Metrics
	logger      *monitoring.Logger
}

func newServer(deps serverDeps) *server {
	return &server{
		cfg:         deps.Config,
		db:          deps.DB,
		repo:        database.NewRepository(deps.DB),
		redis:       deps.Redis,
		cache:       deps.Cache,
		limiter:     deps.Limiter,
		analyzer:    deps.Analyzer,
		youtube:     deps.YouTube,
		leaderboard: deps.Leaderboard,
		privacy:     deps.Privacy,
		security: security.NewSecurityMiddleware(security.SecurityConfig{
			AllowedOrigins: deps.Config.CORSOrigins,
		}),
		compression: middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

func (s *server) routes() *gin.Engine {
	r := gin.New()

	r.Use(s.security.CORS())
	r.Use(s.compression.Handler())
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())
	r.Use(s.security.SecurityHeaders)
	r.Use(s.security.LimitBody)
	r.Use(s.security.ValidateContentType)
	r.Use(s.limiter.IPRateLimitMiddleware())
	r.Use(s.cache.Middleware("/analyze"))

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", monitoring.MetricsHandler(s.metrics))
	r.GET("/metrics/prometheus", monitoring.PrometheusHandler(s.metrics))
	r.GET("/cache/stats", s.handleCacheStats)
	r.GET("/ratelimit/status", s.limiter.HandleRateLimitStatus())
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("", s.security.RequestTimeout())
	api.POST("/analyze", s.handleAnalyze)
	api.GET("/analyses/:id", s.handleGetAnalysis)
	api.GET("/benchmarks", s.handleListBenchmarks)
	api.GET("/benchmarks/:vertical", s.handleGetBenchmarks)
	api.GET("/channels/:channel_id/analyses", s.handleChannelHistory)
	api.GET("/channels/:channel_id/privacy", s.handleGetPrivacy)
	api.PUT("/channels/:channel_id/visibility", s.handleUpdateVisibility)
	api.DELETE("/channels/:channel_id/data", s.handleDeleteChannelData)
	api.GET("/privacy/policy", s.handlePrivacyPolicy)
	api.GET("/leaderboard/:period", s.handleGetLeaderboard)
	api.POST("/leaderboard/update", s.handleUpdateLeaderboards)

	collect := r.Group("/channels",
		s.security.CollectTimeout(),
		s.limiter.EndpointRateLimitMiddleware("collect", s.cfg.CollectRateLimitPerMin),
	)
	collect.POST("/collect", s.handleCollect)
	collect.POST("/analyze", s.handleCollectAndAnalyze)

	return r
}

func (s *server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	dependencies := gin.H{}

	if err := s.db.HealthCheck(ctx); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		dependencies["sqlite"] = gin.H{"status": "down", "error": err.Error()}
	} else {
		dependencies["sqlite"] = gin.H{"status": "up", "pool": s.db.GetPoolStats()}
	}

	switch {
	case !s.redis.IsEnabled():
		dependencies["redis"] = gin.H{"status": "disabled"}
	case s.redis.HealthCheck(ctx) != nil:
		// cache and rate limiting fall back to memory
		status = "degraded"
		dependencies["redis"] = gin.H{"status": "down", "pool": s.redis.PoolStats()}
	default:
		dependencies["redis"] = gin.H{"status": "up", "pool": s.redis.PoolStats()}
	}

	if s.youtube == nil {
		dependencies["youtube"] = gin.H{"status": "disabled"}
	} else {
		dependencies["youtube"] = gin.H{"status": "configured", "circuit_breaker": s.youtube.Stats()}
	}

	c.JSON(code, gin.H{
		"status":       status,
		"version":      version,
		"uptime":       monitoring.Uptime().Round(time.Second).String(),
		"timestamp":    time.Now().Format(time.RFC3339),
		"dependencies": dependencies,
		"compression":  s.compression.GetStats(),
	})
}

func (s *server) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.cache.Stats(c.Request.Context()))
}

type analyzeResponse struct {
	AnalysisID string               `json:"analysis_id"`
	IsPublic   bool                 `json:"is_public"`
	Report     analysis.ScoreReport `json:"report"`
}

func (s *server) handleAnalyze(c *gin.Context) {
	var req types.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(c, apperrors.NewValidationError("Invalid request body: "+err.Error()))
		return
	}

	s.scoreAndStore(c, req.Bundle, req.Vertical, req.Public())
}

// scoreAndStore scores a bundle, persists the run and writes the response
func (s *server) scoreAndStore(c *gin.Context, bundle *types.ChannelBundle, vertical string, public bool) {
	start := time.Now()

	report, err := s.analyzer.AnalyzeBundle(bundle, vertical)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	rec := database.NewAnalysisRecord(report, public)
	if err := s.repo.SaveAnalysis(c.Request.Context(), rec); err != nil {
		apperrors.Abort(c, apperrors.NewInternalError("Failed to store analysis", err))
		return
	}

	s.metrics.RecordAnalysis(string(report.Tier), report.Verdict, report.BLCScore)
	s.logger.AnalysisLogger(report.ChannelName, string(report.Tier), report.VideoCountAnalyzed,
		report.BLCScore, report.Verdict, time.Since(start), false)

	c.JSON(http.StatusOK, analyzeResponse{
		AnalysisID: rec.ID,
		IsPublic:   public,
		Report:     report,
	})
}

// bindCollect parses and normalizes a collection request
func (s *server) bindCollect(c *gin.Context) (*types.CollectRequest, bool) {
	if s.youtube == nil {
		apperrors.Abort(c, apperrors.NewConfigurationError("YouTube collection is disabled: YOUTUBE_API_KEY is not set", nil))
		return nil, false
	}

	var req types.CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(c, apperrors.NewValidationError("Invalid request body: "+err.Error()))
		return nil, false
	}

	req.Channel = s.security.SanitizeChannelInput(req.Channel)
	if err := s.security.ValidateChannelInput(req.Channel); err != nil {
		apperrors.Abort(c, err)
		return nil, false
	}

	if req.MaxVideos <= 0 || req.MaxVideos > s.cfg.MaxVideos {
		req.MaxVideos = s.cfg.MaxVideos
	}
	if req.MonthsBack <= 0 {
		req.MonthsBack = s.cfg.MonthsBack
	}

	return &req, true
}

func (s *server) handleCollect(c *gin.Context) {
	req, ok := s.bindCollect(c)
	if !ok {
		return
	}

	bundle, err := s.youtube.CollectBundle(c.Request.Context(), req.Channel, req.MaxVideos, req.MonthsBack)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, bundle)
}

func (s *server) handleCollectAndAnalyze(c *gin.Context) {
	req, ok := s.bindCollect(c)
	if !ok {
		return
	}

	bundle, err := s.youtube.CollectBundle(c.Request.Context(), req.Channel, req.MaxVideos, req.MonthsBack)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	s.scoreAndStore(c, bundle, req.Vertical, req.Public())
}

func (s *server) handleGetAnalysis(c *gin.Context) {
	rec, err := s.repo.GetAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (s *server) handleChannelHistory(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	channelKey := database.ChannelKey(c.Param("channel_id"), "")
	records, err := s.repo.ListByChannel(c.Request.Context(), channelKey, limit)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"channel_key": channelKey,
		"analyses":    records,
		"count":       len(records),
	})
}

func (s *server) handleListBenchmarks(c *gin.Context) {
	overrides, err := s.analyzer.Store().Verticals()
	if err != nil {
		apperrors.Abort(c, apperrors.NewInternalError("Failed to list benchmark overrides", err))
		return
	}
	if overrides == nil {
		overrides = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"default_vertical": s.cfg.DefaultVertical,
		"overrides":        overrides,
		"tiers":            analysis.Tiers,
	})
}

func (s *server) handleGetBenchmarks(c *gin.Context) {
	vertical := c.Param("vertical")
	if !analysis.ValidVertical(vertical) {
		apperrors.Abort(c, apperrors.NewValidationError("Invalid vertical name", "vertical", vertical))
		return
	}

	table, err := s.analyzer.Store().LoadBenchmarks(vertical)
	if err != nil {
		apperrors.Abort(c, apperrors.NewConfigurationError("Failed to load benchmarks for "+vertical, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vertical":   vertical,
		"benchmarks": table,
	})
}

func (s *server) handleGetLeaderboard(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	response, err := s.leaderboard.GetLeaderboard(c.Request.Context(), c.Param("period"), c.Query("tier"), limit)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (s *server) handleUpdateLeaderboards(c *gin.Context) {
	counts, err := s.leaderboard.UpdateLeaderboards(c.Request.Context())
	if err != nil {
		apperrors.Abort(c, apperrors.NewInternalError("Failed to update leaderboards", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "leaderboards updated successfully",
		"entries": counts,
	})
}

func (s *server) handlePrivacyPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, s.privacy.GetDataRetentionInfo())
}

func (s *server) handleGetPrivacy(c *gin.Context) {
	settings, err := s.privacy.GetSettings(c.Request.Context(), c.Param("channel_id"))
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (s *server) handleUpdateVisibility(c *gin.Context) {
	var body struct {
		IsPublic *bool `json:"is_public" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apperrors.Abort(c, apperrors.NewValidationError("is_public is required", "field", "is_public"))
		return
	}

	channelKey := c.Param("channel_id")
	rows, err := s.privacy.UpdateVisibility(c.Request.Context(), channelKey, *body.IsPublic)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":           "visibility updated successfully",
		"channel_key":       channelKey,
		"is_public":         *body.IsPublic,
		"analyses_affected": rows,
	})
}

func (s *server) handleDeleteChannelData(c *gin.Context) {
	result, err := s.privacy.DeleteChannelData(c.Request.Context(), c.Param("channel_id"))
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// queryInt parses an optional integer query parameter; zero means unset
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		apperrors.Abort(c, apperrors.NewValidationError(name+" must be a non-negative integer", name, raw))
		return 0, false
	}
	return n, true
}
