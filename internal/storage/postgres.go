// Package storage persists published pulse rows in PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/DeafMist/casting-pulse/internal/logger"
	"github.com/DeafMist/casting-pulse/internal/models"
)

// Table is the destination table for pulse rows.
const Table = "pulse_daily"

const createTableSQL = `
CREATE TABLE IF NOT EXISTS pulse_daily (
	date_utc               DATE         NOT NULL,
	region_code            VARCHAR(3)   NOT NULL,
	proj_type_code         VARCHAR(1)   NOT NULL,
	role_count_day         INTEGER      NOT NULL,
	lead_share_pct_day     NUMERIC(4,1) NOT NULL,
	union_share_pct_day    NUMERIC(4,1) NOT NULL,
	median_rate_day_usd    BIGINT       NOT NULL,
	sentiment_avg_day      NUMERIC(3,2) NOT NULL,
	theme_ai_share_pct_day NUMERIC(4,1) NOT NULL,
	run_id                 TEXT         NOT NULL,
	published_at           TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
	PRIMARY KEY (date_utc, region_code, proj_type_code)
);

CREATE INDEX IF NOT EXISTS idx_pulse_daily_run ON pulse_daily (run_id);
`

const upsertSQL = `
INSERT INTO pulse_daily (
	date_utc, region_code, proj_type_code, role_count_day, lead_share_pct_day,
	union_share_pct_day, median_rate_day_usd, sentiment_avg_day, theme_ai_share_pct_day, run_id
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (date_utc, region_code, proj_type_code) DO UPDATE SET
	role_count_day         = EXCLUDED.role_count_day,
	lead_share_pct_day     = EXCLUDED.lead_share_pct_day,
	union_share_pct_day    = EXCLUDED.union_share_pct_day,
	median_rate_day_usd    = EXCLUDED.median_rate_day_usd,
	sentiment_avg_day      = EXCLUDED.sentiment_avg_day,
	theme_ai_share_pct_day = EXCLUDED.theme_ai_share_pct_day,
	run_id                 = EXCLUDED.run_id,
	published_at           = NOW()
`

// PostgresWriter upserts pulse rows keyed by their group key.
type PostgresWriter struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPostgresWriter opens the database and pings it.
func NewPostgresWriter(ctx context.Context, connStr string, log *slog.Logger) (*PostgresWriter, error) {
	if log == nil {
		log = logger.Discard()
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresWriter{db: db, log: log}, nil
}

// CreateTable creates the pulse table if it does not exist.
func (w *PostgresWriter) CreateTable(ctx context.Context) error {
	if _, err := w.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table %s: %w", Table, err)
	}
	return nil
}

// Upsert writes all rows in one transaction; either every row lands or none does.
func (w *PostgresWriter) Upsert(ctx context.Context, runID string, rows []models.PulseRow) (err error) {
	if len(rows) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err = stmt.ExecContext(ctx, upsertArgs(runID, r)...); err != nil {
			return fmt.Errorf("upsert %s: %w", r.ID(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	w.log.Info("pulse rows upserted", slog.String("table", Table), slog.Int("rows", len(rows)))
	return nil
}

func upsertArgs(runID string, r models.PulseRow) []any {
	return []any{
		r.Date.Format(models.DateLayout),
		r.RegionCode,
		r.ProjTypeCode,
		r.RoleCount,
		r.LeadSharePct,
		r.UnionSharePct,
		r.MedianRateUSD,
		r.SentimentAvg,
		r.ThemeAISharePct,
		runID,
	}
}

// Close closes the database connection.
func (w *PostgresWriter) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}
