package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"licensesync/internal/license"
)

// Get reads a sync_state value.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM sync_state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read sync state %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes a sync_state value, replacing any previous one.
func (s *Store) Set(ctx context.Context, key, value string) error {
	err := s.execWithRetry(ctx, `INSERT INTO sync_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, key, value)
	if err != nil {
		return fmt.Errorf("write sync state %s: %w", key, err)
	}
	return nil
}

// RecordRun stores one ingestion history row.
func (s *Store) RecordRun(ctx context.Context, run license.RunRecord) error {
	err := s.execWithRetry(ctx, `INSERT INTO ingest_runs
    (run_id, started_at, finished_at, from_date, to_date, fetched, upserted, failed, audit_failures, dry_run, status, error_message)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.FromDate,
		run.ToDate,
		run.Fetched,
		run.Upserted,
		run.Failed,
		run.AuditFailures,
		boolToInt(run.DryRun),
		run.Status,
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
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, started_at, finished_at, from_date, to_date,
    fetched, upserted, failed, audit_failures, dry_run, status, error_message
FROM ingest_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ingest runs: %w", err)
	}
	defer rows.Close()

	var runs []license.RunRecord
	for rows.Next() {
		var (
			run               license.RunRecord
			started, finished string
			dryRun            int
			errMsg            sql.NullString
		)
		if err := rows.Scan(&run.RunID, &started, &finished, &run.FromDate, &run.ToDate,
			&run.Fetched, &run.Upserted, &run.Failed, &run.AuditFailures, &dryRun, &run.Status, &errMsg); err != nil {
			return nil, err
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		run.DryRun = dryRun != 0
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
