package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"licensesync/internal/license"
	"licensesync/internal/services"
)

var upsertSQL = buildUpsertSQL()

// Volatile columns always take the incoming value; stable columns only move
// from unknown to known.
func buildUpsertSQL() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(license.Columns)), ", ")
	return `INSERT INTO licenses (` + strings.Join(license.Columns, ", ") + `, _fetched_at)
VALUES (` + placeholders + `, CURRENT_TIMESTAMP)
ON CONFLICT(natural_key_hash) DO UPDATE SET
    customer_name = excluded.customer_name,
    customer_source = excluded.customer_source,
    user_fullname = excluded.user_fullname,
    product_title = COALESCE(NULLIF(excluded.product_title, ''), licenses.product_title),
    product_duration = COALESCE(excluded.product_duration, licenses.product_duration),
    product_price = COALESCE(excluded.product_price, licenses.product_price),
    license_details = excluded.license_details,
    license_start = COALESCE(excluded.license_start, licenses.license_start),
    license_end = COALESCE(excluded.license_end, licenses.license_end),
    tracking_first_access = COALESCE(excluded.tracking_first_access, licenses.tracking_first_access),
    tracking_last_access = COALESCE(excluded.tracking_last_access, licenses.tracking_last_access),
    tracking_visits = excluded.tracking_visits,
    tracking_elapsed_time = excluded.tracking_elapsed_time,
    is_provisional = excluded.is_provisional,
    _fetch_date_from = excluded._fetch_date_from,
    _fetch_date_to = excluded._fetch_date_to,
    _source_page = excluded._source_page,
    _fetched_at = CURRENT_TIMESTAMP`
}

const insertAuditSQL = `INSERT INTO license_raw
    (natural_key_hash, payload, source_file, source_row_index, _fetch_date_from, _fetch_date_to, _source_page)
VALUES (?, ?, ?, ?, ?, ?, ?)`

var selectLicenseSQL = "SELECT " + strings.Join(license.Columns, ", ") + ", _fetched_at FROM licenses"

// Upsert inserts the record or merges it into the existing row with the same
// natural key.
func (s *Store) Upsert(ctx context.Context, rec license.Record) error {
	if rec.NaturalKeyHash == "" {
		return services.Wrap(services.ErrValidation, "store", "upsert", "natural key hash is empty", nil)
	}
	if err := s.execWithRetry(ctx, upsertSQL, rec.Values()...); err != nil {
		return fmt.Errorf("upsert license %s: %w", rec.NaturalKeyHash, err)
	}
	return nil
}

// AppendAudit appends a raw payload row. Callers treat failures as
// best-effort.
func (s *Store) AppendAudit(ctx context.Context, entry license.AuditEntry) error {
	err := s.execWithRetry(ctx, insertAuditSQL,
		nullableString(entry.NaturalKeyHash),
		string(entry.Payload),
		nullableString(entry.SourceFile),
		entry.SourceRowIndex,
		nullablePtr(entry.FetchDateFrom),
		nullablePtr(entry.FetchDateTo),
		nullablePtr(entry.SourcePage),
	)
	if err != nil {
		return fmt.Errorf("append audit row: %w", err)
	}
	return nil
}

// GetLicense loads one canonical row by natural key.
func (s *Store) GetLicense(ctx context.Context, hash string) (license.StoredRecord, error) {
	row := s.db.QueryRowContext(ctx, selectLicenseSQL+" WHERE natural_key_hash = ?", hash)
	rec, err := scanLicense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return license.StoredRecord{}, services.Wrap(services.ErrNotFound, "store", "get license", hash, nil)
	}
	return rec, err
}

// Customers lists distinct non-null customer names.
func (s *Store) Customers(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT DISTINCT customer_name FROM licenses
WHERE customer_name IS NOT NULL ORDER BY customer_name`)
}

// Products lists distinct product titles licensed to a customer.
func (s *Store) Products(ctx context.Context, customer string) ([]string, error) {
	return s.queryStrings(ctx, `SELECT DISTINCT product_title FROM licenses
WHERE customer_name = ? AND product_title IS NOT NULL ORDER BY product_title`, customer)
}

// QueryLicenses returns one page of rows matching the filter and the total
// number of matches.
func (s *Store) QueryLicenses(ctx context.Context, filter license.Filter) ([]license.StoredRecord, int, error) {
	where, args := filter.Where(questionMark)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM licenses"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count licenses: %w", err)
	}

	query := selectLicenseSQL + where + " ORDER BY id LIMIT ? OFFSET ?"
	records, err := s.queryLicenses(ctx, query, append(args, license.PageSize, filter.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ExportLicenses returns every row matching the filter, ignoring the page.
func (s *Store) ExportLicenses(ctx context.Context, filter license.Filter) ([]license.StoredRecord, error) {
	where, args := filter.Where(questionMark)
	return s.queryLicenses(ctx, selectLicenseSQL+where+" ORDER BY id", args...)
}

// Summary counts rows for status output.
func (s *Store) Summary(ctx context.Context) (license.Summary, error) {
	var sum license.Summary
	err := s.db.QueryRowContext(ctx, `SELECT
    (SELECT COUNT(1) FROM licenses),
    (SELECT COUNT(1) FROM licenses WHERE is_provisional = 1),
    (SELECT COUNT(1) FROM license_raw),
    (SELECT COUNT(DISTINCT customer_name) FROM licenses)`).
		Scan(&sum.Licenses, &sum.Provisional, &sum.AuditRows, &sum.Customers)
	if err != nil {
		return license.Summary{}, fmt.Errorf("summarize licenses: %w", err)
	}
	return sum, nil
}

func (s *Store) queryLicenses(ctx context.Context, query string, args ...any) ([]license.StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query licenses: %w", err)
	}
	defer rows.Close()

	var out []license.StoredRecord
	for rows.Next() {
		rec, err := scanLicense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
