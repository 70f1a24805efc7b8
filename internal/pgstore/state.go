package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"licensesync/internal/license"
)

// Get reads a sync_state value.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, "SELECT value FROM sync_state WHERE key = $1", key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read sync state %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes a sync_state value, replacing any previous one.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO sync_state (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, key, value)
	if err != nil {
		return fmt.Errorf("write sync state %s: %w", key, err)
	}
	return nil
}

// RecordRun stores one ingestion history row.
func (s *Store) RecordRun(ctx context.Context, run license.RunRecord) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO ingest_runs
    (run_id, started_at, finished_at, from_date, to_date, fetched, upserted, failed, audit_failures, dry_run, status, error_message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.RunID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.FromDate, run.ToDate,
		run.Fetched, run.Upserted, run.Failed, run.AuditFailures, run.DryRun, run.Status,
		nullableString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("record ingest run: %w", err)
	}
	return nil
}

// RecentRuns returns the newest history rows first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]license.RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `SELECT run_id, started_at, finished_at, from_date, to_date,
    fetched, upserted, failed, audit_failures, dry_run, status, COALESCE(error_message, '')
FROM ingest_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ingest runs: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (license.RunRecord, error) {
		var run license.RunRecord
		err := row.Scan(&run.RunID, &run.StartedAt, &run.FinishedAt, &run.FromDate, &run.ToDate,
			&run.Fetched, &run.Upserted, &run.Failed, &run.AuditFailures, &run.DryRun, &run.Status, &run.Error)
		return run, err
	})
}
