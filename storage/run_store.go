package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"networth-analyzer/models"
	"networth-analyzer/utils"
)

// RunStore persists analysis summaries to PostgreSQL. Individual person
// records are never stored.
type RunStore struct {
	db *sql.DB
}

// NewRunStore opens a connection to PostgreSQL, retrying the initial ping,
// runs schema migrations, and returns a ready-to-use RunStore.
func NewRunStore(ctx context.Context, dsn string, retry *utils.RetryConfig) (*RunStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres-ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	rs := &RunStore{db: db}
	if err := rs.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return rs, nil
}

func (rs *RunStore) migrate(ctx context.Context) error {
	_, err := rs.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS networth_runs (
			id                SERIAL PRIMARY KEY,
			source            TEXT             NOT NULL,
			richest_name      TEXT             NOT NULL DEFAULT '',
			richest_net_worth DOUBLE PRECISION NOT NULL DEFAULT -1,
			found             BOOLEAN          NOT NULL DEFAULT FALSE,
			email_missing     INTEGER          NOT NULL DEFAULT 0,
			phone_missing     INTEGER          NOT NULL DEFAULT 0,
			rows_read         INTEGER          NOT NULL DEFAULT 0,
			rows_skipped      INTEGER          NOT NULL DEFAULT 0,
			unparseable       INTEGER          NOT NULL DEFAULT 0,
			generated_at      TIMESTAMPTZ      NOT NULL,
			created_at        TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_networth_runs_source  ON networth_runs(source);
		CREATE INDEX IF NOT EXISTS idx_networth_runs_created ON networth_runs(created_at);
	`)
	return err
}

// Record inserts one summary.
func (rs *RunStore) Record(ctx context.Context, s *models.Summary) error {
	_, err := rs.db.ExecContext(ctx, `
		INSERT INTO networth_runs
			(source, richest_name, richest_net_worth, found, email_missing,
			 phone_missing, rows_read, rows_skipped, unparseable, generated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, s.Source, s.RichestName, s.RichestNetWorth, s.Found, s.EmailMissing,
		s.PhoneMissing, s.RowsRead, s.RowsSkipped, s.Unparseable, s.GeneratedAt)
	if err != nil {
		return fmt.Errorf("postgres: record run: %w", err)
	}
	return nil
}

// Recent returns up to limit stored runs, newest first.
func (rs *RunStore) Recent(ctx context.Context, limit int) ([]*models.Run, error) {
	rows, err := rs.db.QueryContext(ctx, `
		SELECT id, source, richest_name, richest_net_worth, found, email_missing,
		       phone_missing, rows_read, rows_skipped, unparseable, generated_at, created_at
		FROM networth_runs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch recent: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		r := &models.Run{}
		if err := rows.Scan(
			&r.ID, &r.Source, &r.RichestName, &r.RichestNetWorth, &r.Found, &r.EmailMissing,
			&r.PhoneMissing, &r.RowsRead, &r.RowsSkipped, &r.Unparseable, &r.GeneratedAt, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (rs *RunStore) Close() error {
	return rs.db.Close()
}
