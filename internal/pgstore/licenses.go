package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"licensesync/internal/license"
	"licensesync/internal/services"
)

var upsertSQL = buildUpsertSQL()

func buildUpsertSQL() string {
	params := make([]string, len(license.Columns))
	for i := range params {
		params[i] = dollar(i + 1)
	}
	return `INSERT INTO licenses (` + strings.Join(license.Columns, ", ") + `, _fetched_at)
VALUES (` + strings.Join(params, ", ") + `, now())
ON CONFLICT (natural_key_hash) DO UPDATE SET
    customer_name = EXCLUDED.customer_name,
    customer_source = EXCLUDED.customer_source,
    user_fullname = EXCLUDED.user_fullname,
    product_title = COALESCE(NULLIF(EXCLUDED.product_title, ''), licenses.product_title),
    product_duration = COALESCE(EXCLUDED.product_duration, licenses.product_duration),
    product_price = COALESCE(EXCLUDED.product_price, licenses.product_price),
    license_details = EXCLUDED.license_details,
    license_start = COALESCE(EXCLUDED.license_start, licenses.license_start),
    license_end = COALESCE(EXCLUDED.license_end, licenses.license_end),
    tracking_first_access = COALESCE(EXCLUDED.tracking_first_access, licenses.tracking_first_access),
    tracking_last_access = COALESCE(EXCLUDED.tracking_last_access, licenses.tracking_last_access),
    tracking_visits = EXCLUDED.tracking_visits,
    tracking_elapsed_time = EXCLUDED.tracking_elapsed_time,
    is_provisional = EXCLUDED.is_provisional,
    _fetch_date_from = EXCLUDED._fetch_date_from,
    _fetch_date_to = EXCLUDED._fetch_date_to,
    _source_page = EXCLUDED._source_page,
    _fetched_at = now()`
}

var selectLicenseSQL = "SELECT " + strings.Join(license.Columns, ", ") +
	`, to_char(_fetched_at AT TIME ZONE 'UTC', 'YYYY-MM-DD HH24:MI:SS') FROM licenses`

// Upsert inserts the record or merges it into the row with the same natural key.
func (s *Store) Upsert(ctx context.Context, rec license.Record) error {
	if rec.NaturalKeyHash == "" {
		return services.Wrap(services.ErrValidation, "pgstore", "upsert", "natural key hash is empty", nil)
	}
	if _, err := s.pool.Exec(ctx, upsertSQL, rec.Values()...); err != nil {
		return fmt.Errorf("upsert license %s: %w", rec.NaturalKeyHash, err)
	}
	return nil
}

// AppendAudit appends a raw payload row.
func (s *Store) AppendAudit(ctx context.Context, entry license.AuditEntry) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO license_raw
    (natural_key_hash, payload, source_file, source_row_index, _fetch_date_from, _fetch_date_to, _source_page)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		nullableString(entry.NaturalKeyHash),
		string(entry.Payload),
		nullableString(entry.SourceFile),
		entry.SourceRowIndex,
		entry.FetchDateFrom,
		entry.FetchDateTo,
		entry.SourcePage,
	)
	if err != nil {
		return fmt.Errorf("append audit row: %w", err)
	}
	return nil
}

// GetLicense loads one canonical row by natural key.
func (s *Store) GetLicense(ctx context.Context, hash string) (license.StoredRecord, error) {
	rec, err := scanLicense(s.pool.QueryRow(ctx, selectLicenseSQL+" WHERE natural_key_hash = $1", hash))
	if errors.Is(err, pgx.ErrNoRows) {
		return license.StoredRecord{}, services.Wrap(services.ErrNotFound, "pgstore", "get license", hash, nil)
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
WHERE customer_name = $1 AND product_title IS NOT NULL ORDER BY product_title`, customer)
}

// QueryLicenses returns one page of matches and the total match count.
func (s *Store) QueryLicenses(ctx context.Context, filter license.Filter) ([]license.StoredRecord, int, error) {
	where, args := filter.Where(dollar)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(1) FROM licenses"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count licenses: %w", err)
	}
	n := len(args)
	query := fmt.Sprintf("%s%s ORDER BY id LIMIT %s OFFSET %s", selectLicenseSQL, where, dollar(n+1), dollar(n+2))
	records, err := s.queryLicenses(ctx, query, append(args, license.PageSize, filter.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ExportLicenses returns every match, ignoring the page.
func (s *Store) ExportLicenses(ctx context.Context, filter license.Filter) ([]license.StoredRecord, error) {
	where, args := filter.Where(dollar)
	return s.queryLicenses(ctx, selectLicenseSQL+where+" ORDER BY id", args...)
}

// Summary counts rows for status output in a single round trip.
func (s *Store) Summary(ctx context.Context) (license.Summary, error) {
	var sum license.Summary
	batch := &pgx.Batch{}
	batch.Queue("SELECT COUNT(1) FROM licenses").QueryRow(func(row pgx.Row) error { return row.Scan(&sum.Licenses) })
	batch.Queue("SELECT COUNT(1) FROM licenses WHERE is_provisional = 1").QueryRow(func(row pgx.Row) error { return row.Scan(&sum.Provisional) })
	batch.Queue("SELECT COUNT(1) FROM license_raw").QueryRow(func(row pgx.Row) error { return row.Scan(&sum.AuditRows) })
	batch.Queue("SELECT COUNT(DISTINCT customer_name) FROM licenses").QueryRow(func(row pgx.Row) error { return row.Scan(&sum.Customers) })
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return license.Summary{}, fmt.Errorf("summarize licenses: %w", err)
	}
	return sum, nil
}

func (s *Store) queryLicenses(ctx context.Context, query string, args ...any) ([]license.StoredRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func scanLicense(row pgx.Row) (license.StoredRecord, error) {
	var rec license.StoredRecord
	if err := row.Scan(append(rec.Pointers(), &rec.FetchedAt)...); err != nil {
		return license.StoredRecord{}, err
	}
	return rec, nil
}

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
