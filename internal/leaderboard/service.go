package leaderboard

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/database"
	apperrors "github.com/ZanzyTHEbar/blc-o-meter/internal/errors"
)

// Period is a leaderboard window
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "all_time"
)

// Periods lists every leaderboard window in update order
var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime}

const (
	dateLayout   = "2006-01-02"
	defaultLimit = 50
	maxLimit     = 100
	// maxEntries bounds both the overall and the per-tier ranking
	maxEntries = 100
)

var allTimeStart = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// ParsePeriod validates a period name
func ParsePeriod(s string) (Period, error) {
	for _, p := range Periods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", apperrors.NewValidationError("Invalid leaderboard period", "period", s)
}

// Entry is one ranked channel. Rank is the position over all tiers, TierRank
// the position within the channel's own tier.
type Entry struct {
	ID            string        `json:"id"`
	Period        Period        `json:"period"`
	PeriodStart   time.Time     `json:"period_start"`
	PeriodEnd     time.Time     `json:"period_end"`
	Rank          int           `json:"rank"`
	TierRank      int           `json:"tier_rank"`
	ChannelKey    string        `json:"channel_key"`
	ChannelID     string        `json:"channel_id,omitempty"`
	ChannelName   string        `json:"channel_name"`
	Tier          analysis.Tier `json:"tier"`
	Vertical      string        `json:"vertical"`
	BLCScore      float64       `json:"blc_score"`
	Verdict       string        `json:"verdict"`
	AnalysisID    string        `json:"analysis_id"`
	AnalysisCount int           `json:"analysis_count"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Response is the body of a leaderboard query
type Response struct {
	Entries     []Entry   `json:"entries"`
	Total       int       `json:"total"`
	Period      Period    `json:"period"`
	Tier        string    `json:"tier,omitempty"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// Service ranks channels by their best public BLC score per period
type Service struct {
	db    *database.DB
	cache *LeaderboardCache
	now   func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the clock used to place periods
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a leaderboard service. cache may be nil.
func NewService(db *database.DB, cache *LeaderboardCache, opts ...Option) *Service {
	s := &Service{
		db:    db,
		cache: cache,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// periodBounds returns the [start, end) window of period around now, in UTC.
// Weeks start on Monday.
func periodBounds(period Period, now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch period {
	case PeriodDaily:
		return today, today.AddDate(0, 0, 1)
	case PeriodWeekly:
		offset := (int(now.Weekday()) + 6) % 7
		start := today.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	default:
		return allTimeStart, today.AddDate(0, 0, 1)
	}
}

type bestRun struct {
	analysisID  string
	channelKey  string
	channelID   string
	channelName string
	tier        string
	vertical    string
	verdict     string
	score       float64
	count       int
}

// UpdateLeaderboards recomputes the current window of every period in one
// transaction and returns the number of entries written per period
func (s *Service) UpdateLeaderboards(ctx context.Context) (map[Period]int, error) {
	start := time.Now()
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin leaderboard update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	written := make(map[Period]int, len(Periods))
	for _, period := range Periods {
		n, err := s.updatePeriod(ctx, tx, period, now)
		if err != nil {
			return nil, fmt.Errorf("failed to update %s leaderboard: %w", period, err)
		}
		written[period] = n
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit leaderboard update: %w", err)
	}

	s.cache.InvalidateAll(ctx)

	slog.Info("Leaderboards updated",
		"daily", written[PeriodDaily],
		"weekly", written[PeriodWeekly],
		"monthly", written[PeriodMonthly],
		"all_time", written[PeriodAllTime],
		"duration_ms", time.Since(start).Milliseconds())

	return written, nil
}

func (s *Service) updatePeriod(ctx context.Context, tx *sql.Tx, period Period, now time.Time) (int, error) {
	periodStart, periodEnd := periodBounds(period, now)

	runs, err := s.bestRuns(ctx, tx, period, periodStart, periodEnd)
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM leaderboard_entries WHERE period = ? AND period_start = ?`,
		string(period), periodStart.Format(dateLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to clear existing entries: %w", err)
	}

	insert, err := s.db.GetPreparedStatement(database.StmtInsertLeaderboardEntry)
	if err != nil {
		return 0, err
	}
	insert = tx.StmtContext(ctx, insert)
	defer insert.Close()

	tierRanks := make(map[string]int, len(analysis.Tiers))
	written := 0
	for i, run := range runs {
		rank := i + 1
		tierRanks[run.tier]++
		tierRank := tierRanks[run.tier]
		if rank > maxEntries && tierRank > maxEntries {
			continue
		}

		_, err := insert.ExecContext(ctx,
			uuid.New().String(), string(period),
			periodStart.Format(dateLayout), periodEnd.Format(dateLayout),
			rank, tierRank,
			run.channelKey, run.channelID, run.channelName, run.tier, run.vertical,
			run.score, run.verdict, run.analysisID, run.count, now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to save leaderboard entry: %w", err)
		}
		written++
	}

	slog.Debug("Updated leaderboard", "period", period, "period_start", periodStart.Format(dateLayout), "entries", written)
	return written, nil
}

// bestRuns returns each channel's highest public run inside the window, best
// first. The non-aggregate columns come from the row holding the maximum.
func (s *Service) bestRuns(ctx context.Context, tx *sql.Tx, period Period, periodStart, periodEnd time.Time) ([]bestRun, error) {
	query := `
		SELECT id, channel_key, channel_id, channel_name, tier, vertical, verdict,
			MAX(blc_score) AS best_score, COUNT(*) AS runs
		FROM analyses
		WHERE is_public = TRUE`
	var args []any
	if period != PeriodAllTime {
		query += ` AND created_at >= ? AND created_at < ?`
		args = append(args, periodStart, periodEnd)
	}
	query += `
		GROUP BY channel_key
		ORDER BY best_score DESC, channel_key ASC`

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}
	defer rows.Close()

	var runs []bestRun
	for rows.Next() {
		var r bestRun
		if err := rows.Scan(&r.analysisID, &r.channelKey, &r.channelID, &r.channelName,
			&r.tier, &r.vertical, &r.verdict, &r.score, &r.count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read top scores: %w", err)
	}
	return runs, nil
}

// GetLeaderboard returns the current window of period, optionally limited to
// one tier. limit defaults to 50 and is capped at 100.
func (s *Service) GetLeaderboard(ctx context.Context, period, tier string, limit int) (*Response, error) {
	p, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	if tier != "" && !analysis.Tier(tier).Valid() {
		return nil, apperrors.NewValidationError("Invalid tier", "tier", tier)
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	periodStart, periodEnd := periodBounds(p, s.now())
	startKey := periodStart.Format(dateLayout)

	if cached, found := s.cache.GetLeaderboard(ctx, p, startKey, tier, limit); found {
		return cached, nil
	}

	var rows *sql.Rows
	if tier == "" {
		stmt, err := s.db.GetPreparedStatement(database.StmtGetLeaderboard)
		if err != nil {
			return nil, err
		}
		rows, err = stmt.QueryContext(ctx, string(p), startKey, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to query leaderboard: %w", err)
		}
	} else {
		stmt, err := s.db.GetPreparedStatement(database.StmtGetTierLeaderboard)
		if err != nil {
			return nil, err
		}
		rows, err = stmt.QueryContext(ctx, string(p), startKey, tier, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to query leaderboard: %w", err)
		}
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var entryPeriod, entryTier string
		if err := rows.Scan(
			&e.ID, &entryPeriod, &e.PeriodStart, &e.PeriodEnd, &e.Rank, &e.TierRank,
			&e.ChannelKey, &e.ChannelID, &e.ChannelName, &entryTier, &e.Vertical,
			&e.BLCScore, &e.Verdict, &e.AnalysisID, &e.AnalysisCount, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		e.Period = Period(entryPeriod)
		e.Tier = analysis.Tier(entryTier)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	response := &Response{
		Entries:     entries,
		Total:       len(entries),
		Period:      p,
		Tier:        tier,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}

	s.cache.SetLeaderboard(ctx, p, startKey, tier, limit, response)
	return response, nil
}

// AutoRefresh recomputes the leaderboards every interval until ctx is done
func (s *Service) AutoRefresh(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.UpdateLeaderboards(ctx); err != nil {
				slog.Error("Scheduled leaderboard update failed", "error", err)
			}
		}
	}
}
