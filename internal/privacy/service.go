package privacy

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/cache"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/database"
	apperrors "github.com/ZanzyTHEbar/blc-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/leaderboard"
)

// DefaultRetentionDays is how long private analyses are kept
const DefaultRetentionDays = 365

// PrivacyService handles channel data visibility, deletion and retention
type PrivacyService struct {
	db            *database.DB
	cache         *leaderboard.LeaderboardCache
	responses     *cache.Cache
	retentionDays int
	now           func() time.Time
}

// Option configures a PrivacyService
type Option func(*PrivacyService)

// WithResponseCache lets visibility changes and deletions drop cached
// /analyze responses
func WithResponseCache(c *cache.Cache) Option {
	return func(ps *PrivacyService) { ps.responses = c }
}

// NewService creates a new privacy service. lbCache may be nil.
func NewService(db *database.DB, lbCache *leaderboard.LeaderboardCache, retentionDays int, opts ...Option) *PrivacyService {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	ps := &PrivacyService{
		db:            db,
		cache:         lbCache,
		retentionDays: retentionDays,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(ps)
	}
	return ps
}

// Settings summarizes what is stored for a channel
type Settings struct {
	ChannelKey        string     `json:"channel_key"`
	TotalAnalyses     int        `json:"total_analyses"`
	PublicAnalyses    int        `json:"public_analyses"`
	PrivateAnalyses   int        `json:"private_analyses"`
	FirstAnalysisDate *time.Time `json:"first_analysis_date,omitempty"`
	LastAnalysisDate  *time.Time `json:"last_analysis_date,omitempty"`
	RetentionDays     int        `json:"private_retention_days"`
}

// DeletionResult reports what DeleteChannelData removed
type DeletionResult struct {
	ChannelKey         string `json:"channel_key"`
	AnalysesDeleted    int64  `json:"analyses_deleted"`
	LeaderboardDeleted int64  `json:"leaderboard_entries_deleted"`
}

// GetDataRetentionInfo describes the retention policy
func (ps *PrivacyService) GetDataRetentionInfo() map[string]interface{} {
	return map[string]interface{}{
		"private_analysis_retention_days": ps.retentionDays,
		"public_analysis_retention":       "until deleted",
		"leaderboard_history":             "kept per period",
	}
}

// GetSettings returns stored-data counts for a channel
func (ps *PrivacyService) GetSettings(ctx context.Context, channelKey string) (*Settings, error) {
	var total int
	var public sql.NullInt64
	var first, last *string

	err := ps.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			SUM(CASE WHEN is_public THEN 1 ELSE 0 END),
			MIN(created_at),
			MAX(created_at)
		FROM analyses
		WHERE channel_key = ?`, channelKey).Scan(&total, &public, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to get privacy settings: %w", err)
	}
	if total == 0 {
		return nil, apperrors.NewNotFoundError("channel", channelKey)
	}

	settings := &Settings{
		ChannelKey:        channelKey,
		TotalAnalyses:     total,
		FirstAnalysisDate: parseStoredTime(first),
		LastAnalysisDate:  parseStoredTime(last),
		RetentionDays:     ps.retentionDays,
	}
	settings.PublicAnalyses = int(public.Int64)
	settings.PrivateAnalyses = total - settings.PublicAnalyses
	return settings, nil
}

// UpdateVisibility marks every stored run of a channel public or private.
// Going private also removes the channel from every leaderboard.
func (ps *PrivacyService) UpdateVisibility(ctx context.Context, channelKey string, isPublic bool) (int64, error) {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin visibility update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `UPDATE analyses SET is_public = ? WHERE channel_key = ?`, isPublic, channelKey)
	if err != nil {
		return 0, fmt.Errorf("failed to update visibility: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return 0, apperrors.NewNotFoundError("channel", channelKey)
	}

	// private channels leave the rankings immediately, not at the next refresh
	var removed int64
	if !isPublic {
		lbResult, err := tx.ExecContext(ctx, `DELETE FROM leaderboard_entries WHERE channel_key = ?`, channelKey)
		if err != nil {
			return 0, fmt.Errorf("failed to delete leaderboard entries: %w", err)
		}
		removed, _ = lbResult.RowsAffected()
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit visibility update: %w", err)
	}

	if removed > 0 {
		ps.cache.InvalidateAll(ctx)
	}
	ps.invalidateResponses(ctx)

	slog.Info("Channel visibility updated",
		"channel_key", channelKey,
		"is_public", isPublic,
		"rows_affected", rows,
		"leaderboard_entries_deleted", removed)
	return rows, nil
}

// DeleteChannelData removes every analysis and leaderboard entry of a channel
func (ps *PrivacyService) DeleteChannelData(ctx context.Context, channelKey string) (*DeletionResult, error) {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin deletion: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	analysisResult, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE channel_key = ?`, channelKey)
	if err != nil {
		return nil, fmt.Errorf("failed to delete analyses: %w", err)
	}
	leaderboardResult, err := tx.ExecContext(ctx, `DELETE FROM leaderboard_entries WHERE channel_key = ?`, channelKey)
	if err != nil {
		return nil, fmt.Errorf("failed to delete leaderboard entries: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit deletion: %w", err)
	}

	res := &DeletionResult{ChannelKey: channelKey}
	res.AnalysesDeleted, _ = analysisResult.RowsAffected()
	res.LeaderboardDeleted, _ = leaderboardResult.RowsAffected()

	if res.LeaderboardDeleted > 0 {
		ps.cache.InvalidateAll(ctx)
	}
	if res.AnalysesDeleted > 0 {
		ps.invalidateResponses(ctx)
	}

	slog.Info("Channel data deleted",
		"channel_key", channelKey,
		"analyses_deleted", res.AnalysesDeleted,
		"leaderboard_entries_deleted", res.LeaderboardDeleted)

	return res, nil
}

// CleanupPrivateData deletes private analyses older than the retention window
func (ps *PrivacyService) CleanupPrivateData(ctx context.Context) (int64, error) {
	cutoff := ps.now().UTC().AddDate(0, 0, -ps.retentionDays)

	result, err := ps.db.ExecContext(ctx, `DELETE FROM analyses WHERE created_at < ? AND is_public = FALSE`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old analyses: %w", err)
	}

	rows, _ := result.RowsAffected()
	slog.Info("Data cleanup completed", "cutoff_date", cutoff.Format(time.RFC3339), "analyses_deleted", rows)
	return rows, nil
}

// ScheduleDataCleanup runs CleanupPrivateData every interval until ctx is done
func (ps *PrivacyService) ScheduleDataCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := ps.CleanupPrivateData(ctx); err != nil {
				slog.Error("Scheduled data cleanup failed", "error", err)
			}
		}
	}
}

func (ps *PrivacyService) invalidateResponses(ctx context.Context) {
	if ps.responses == nil {
		return
	}
	ps.responses.InvalidatePrefix(ctx, cache.ResponsePrefix)
}

func parseStoredTime(s *string) *time.Time {
	if s == nil {
		return nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05.999999999-07:00", time.RFC3339Nano} {
		if t, err := time.Parse(layout, *s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
