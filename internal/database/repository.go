package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/blc-o-meter/internal/errors"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Repository handles analysis persistence
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveAnalysis stores a scoring run
func (r *Repository) SaveAnalysis(ctx context.Context, rec *AnalysisRecord) error {
	reportJSON, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	stmt, err := r.db.GetPreparedStatement(StmtInsertAnalysis)
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		rec.ID, rec.ChannelKey, rec.ChannelID, rec.ChannelName, rec.Vertical, string(rec.Tier),
		rec.BLCScore, rec.Verdict, rec.VideoCount, rec.IsPublic, string(reportJSON), rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	return nil
}

// GetAnalysis loads a stored run by id
func (r *Repository) GetAnalysis(ctx context.Context, id string) (*AnalysisRecord, error) {
	stmt, err := r.db.GetPreparedStatement(StmtGetAnalysis)
	if err != nil {
		return nil, err
	}

	rec, err := scanAnalysis(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("analysis", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}
	return rec, nil
}

// ListByChannel returns the newest runs for a channel key, newest first
func (r *Repository) ListByChannel(ctx context.Context, channelKey string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	stmt, err := r.db.GetPreparedStatement(StmtListChannelAnalyses)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, channelKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query channel history: %w", err)
	}
	defer rows.Close()

	records := []AnalysisRecord{}
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read channel history: %w", err)
	}

	return records, nil
}

// CountAnalyses returns the number of stored runs
func (r *Repository) CountAnalyses(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*AnalysisRecord, error) {
	var rec AnalysisRecord
	var tier, reportJSON string

	err := row.Scan(
		&rec.ID, &rec.ChannelKey, &rec.ChannelID, &rec.ChannelName, &rec.Vertical, &tier,
		&rec.BLCScore, &rec.Verdict, &rec.VideoCount, &rec.IsPublic, &reportJSON, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Tier = analysis.Tier(tier)
	if err := json.Unmarshal([]byte(reportJSON), &rec.Report); err != nil {
		return nil, fmt.Errorf("corrupt report for analysis %s: %w", rec.ID, err)
	}
	return &rec, nil
}
