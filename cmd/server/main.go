package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/adapters"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/cache"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/config"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/database"
	apperrors "github.com/ZanzyTHEbar/blc-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/leaderboard"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/privacy"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/ratelimit"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := monitoring.NewLoggerWithLevel(cfg.LogLevel)
	slog.SetDefault(logger.Logger)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer apperrors.SafeClose(db, "database")

	redisClient, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Warn("Redis unavailable, using in-memory cache and rate limiting", "error", err)
	}
	defer apperrors.SafeClose(redisClient, "redis")

	var store cache.Store
	if redisClient.IsEnabled() {
		store = cache.NewRedisStore(redisClient.Client())
	} else {
		store = cache.NewMemoryStore(time.Minute)
	}

	metrics := monitoring.NewMetrics()
	appCache := cache.NewCache(store, cfg.CacheTTL, metrics, logger)
	defer apperrors.SafeClose(appCache, "cache")

	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.Config{
		IPLimitPerMin:      cfg.RateLimitPerMin,
		CollectLimitPerMin: cfg.CollectRateLimitPerMin,
	}, metrics)
	defer apperrors.SafeClose(limiter, "rate limiter")

	var youtube *adapters.YouTubeAdapter
	if cfg.YouTubeAPIKey != "" {
		youtube, err = adapters.NewYouTubeAdapter(ctx, adapters.YouTubeConfig{
			APIKey:         cfg.YouTubeAPIKey,
			MaxComments:    cfg.MaxComments,
			CommentWorkers: cfg.CommentWorkers,
		}, metrics, logger)
		if err != nil {
			return err
		}
	} else {
		slog.Warn("YOUTUBE_API_KEY not configured, collection endpoints are disabled")
	}

	lbCache := leaderboard.NewLeaderboardCache(appCache)

	srv := newServer(serverDeps{
		Config:      cfg,
		DB:          db,
		Redis:       redisClient,
		Cache:       appCache,
		Limiter:     limiter,
		Analyzer:    analysis.NewAnalyzer(cfg.BenchmarkDir(), analysis.WithDefaultVertical(cfg.DefaultVertical), analysis.WithLogger(logger.Logger)),
		YouTube:     youtube,
		Leaderboard: leaderboard.NewService(db, lbCache),
		Privacy:     privacy.NewService(db, lbCache, cfg.RetentionDays, privacy.WithResponseCache(appCache)),
		Metrics:     metrics,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting server", "port", cfg.Port, "version", version, "youtube_enabled", youtube != nil, "redis_enabled", redisClient.IsEnabled())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if _, err := srv.leaderboard.UpdateLeaderboards(gctx); err != nil {
			slog.Error("Initial leaderboard update failed", "error", err)
		}
		return srv.leaderboard.AutoRefresh(gctx, cfg.LeaderboardRefresh)
	})

	g.Go(func() error {
		return srv.privacy.ScheduleDataCleanup(gctx, cfg.CleanupInterval)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("Server exited")
	return nil
}
