package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// FileName is the SQLite database file created inside the data directory
const FileName = "blc_o_meter.db"

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool applies the pool limits to db
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"max_lifetime_seconds": cp.maxLifetime.Seconds(),
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// NewDB opens (creating if needed) the analysis store in dataDir, runs the
// migrations and prepares the hot statements.
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, FileName)
	connStr := dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000"

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := NewConnectionPool(db, 8, 4, 30*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized",
		"path", dbPath,
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns)

	return database, nil
}

func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			channel_key TEXT NOT NULL, -- channel id, or "name:<channel name>" for id-less bundles
			channel_id TEXT NOT NULL DEFAULT '',
			channel_name TEXT NOT NULL,
			vertical TEXT NOT NULL,
			tier TEXT NOT NULL,
			blc_score REAL NOT NULL,
			verdict TEXT NOT NULL,
			video_count INTEGER NOT NULL,
			is_public BOOLEAN NOT NULL DEFAULT TRUE,
			report TEXT NOT NULL, -- ScoreReport JSON
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS leaderboard_entries (
			id TEXT PRIMARY KEY,
			period TEXT NOT NULL, -- 'daily', 'weekly', 'monthly', 'all_time'
			period_start DATE NOT NULL,
			period_end DATE NOT NULL,
			rank INTEGER NOT NULL,
			tier_rank INTEGER NOT NULL,
			channel_key TEXT NOT NULL,
			channel_id TEXT NOT NULL DEFAULT '',
			channel_name TEXT NOT NULL,
			tier TEXT NOT NULL,
			vertical TEXT NOT NULL,
			blc_score REAL NOT NULL,
			verdict TEXT NOT NULL,
			analysis_id TEXT NOT NULL,
			analysis_count INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE(period, period_start, channel_key)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_analyses_channel ON analyses(channel_key, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_score ON analyses(blc_score DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_entries_rank ON leaderboard_entries(period, period_start, rank)`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_entries_tier ON leaderboard_entries(period, period_start, tier, tier_rank)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// Statement names accepted by GetPreparedStatement
const (
	StmtInsertAnalysis         = "insert_analysis"
	StmtGetAnalysis            = "get_analysis"
	StmtListChannelAnalyses    = "list_channel_analyses"
	StmtInsertLeaderboardEntry = "insert_leaderboard_entry"
	StmtGetLeaderboard         = "get_leaderboard"
	StmtGetTierLeaderboard     = "get_tier_leaderboard"
)

const analysisColumns = `id, channel_key, channel_id, channel_name, vertical, tier,
	blc_score, verdict, video_count, is_public, report, created_at`

const leaderboardColumns = `id, period, period_start, period_end, rank, tier_rank,
	channel_key, channel_id, channel_name, tier, vertical, blc_score, verdict,
	analysis_id, analysis_count, created_at`

func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		StmtInsertAnalysis: `INSERT INTO analyses (` + analysisColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		StmtGetAnalysis: `SELECT ` + analysisColumns + ` FROM analyses WHERE id = ?`,

		StmtListChannelAnalyses: `SELECT ` + analysisColumns + ` FROM analyses
			WHERE channel_key = ? ORDER BY created_at DESC LIMIT ?`,

		StmtInsertLeaderboardEntry: `INSERT INTO leaderboard_entries (` + leaderboardColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		StmtGetLeaderboard: `SELECT ` + leaderboardColumns + ` FROM leaderboard_entries
			WHERE period = ? AND period_start = ? ORDER BY rank ASC LIMIT ?`,

		StmtGetTierLeaderboard: `SELECT ` + leaderboardColumns + ` FROM leaderboard_entries
			WHERE period = ? AND period_start = ? AND tier = ? ORDER BY tier_rank ASC LIMIT ?`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// HealthCheck pings the database
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the prepared statements and the database connection
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}
	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
