package leaderboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/cache"
)

// CachePrefix namespaces every leaderboard entry in the shared cache
const CachePrefix = "leaderboard:"

// LeaderboardCache stores rendered leaderboard responses in the shared cache.
// A nil *LeaderboardCache or one without a backing cache never hits.
type LeaderboardCache struct {
	cache *cache.Cache
}

// NewLeaderboardCache creates a leaderboard view over c
func NewLeaderboardCache(c *cache.Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: c}
}

func (lc *LeaderboardCache) enabled() bool {
	return lc != nil && lc.cache != nil
}

// generateCacheKey includes the period start so a new day, week or month
// never serves the previous window
func (lc *LeaderboardCache) generateCacheKey(period Period, periodStart, tier string, limit int) string {
	if tier == "" {
		tier = "all"
	}
	return fmt.Sprintf("%s%s:%s:%s:%d", CachePrefix, period, periodStart, tier, limit)
}

// GetLeaderboard retrieves a cached leaderboard response
func (lc *LeaderboardCache) GetLeaderboard(ctx context.Context, period Period, periodStart, tier string, limit int) (*Response, bool) {
	if !lc.enabled() {
		return nil, false
	}

	var response Response
	if !lc.cache.GetJSON(ctx, lc.generateCacheKey(period, periodStart, tier, limit), &response) {
		return nil, false
	}

	slog.Debug("Leaderboard cache hit", "period", period, "tier", tier, "limit", limit)
	return &response, true
}

// SetLeaderboard caches a leaderboard response
func (lc *LeaderboardCache) SetLeaderboard(ctx context.Context, period Period, periodStart, tier string, limit int, response *Response) {
	if !lc.enabled() {
		return
	}

	lc.cache.SetJSON(ctx, lc.generateCacheKey(period, periodStart, tier, limit), response)
	slog.Debug("Leaderboard cached", "period", period, "tier", tier, "limit", limit, "entries", len(response.Entries))
}

// InvalidateAll drops every cached leaderboard response
func (lc *LeaderboardCache) InvalidateAll(ctx context.Context) int {
	if !lc.enabled() {
		return 0
	}

	removed := lc.cache.InvalidatePrefix(ctx, CachePrefix)
	slog.Info("Leaderboard cache invalidated", "removed", removed)
	return removed
}
