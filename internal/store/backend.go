package store

import (
	"context"
	"fmt"
	"log/slog"

	"licensesync/internal/config"
	"licensesync/internal/license"
	"licensesync/internal/pgstore"
)

// Backend is the full persistence surface shared by the SQLite and
// PostgreSQL implementations.
type Backend interface {
	Upsert(ctx context.Context, rec license.Record) error
	AppendAudit(ctx context.Context, entry license.AuditEntry) error
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	RecordRun(ctx context.Context, run license.RunRecord) error
	RecentRuns(ctx context.Context, limit int) ([]license.RunRecord, error)
	GetLicense(ctx context.Context, hash string) (license.StoredRecord, error)
	Customers(ctx context.Context) ([]string, error)
	Products(ctx context.Context, customer string) ([]string, error)
	QueryLicenses(ctx context.Context, filter license.Filter) ([]license.StoredRecord, int, error)
	ExportLicenses(ctx context.Context, filter license.Filter) ([]license.StoredRecord, error)
	Summary(ctx context.Context) (license.Summary, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Backend = (*Store)(nil)
	_ Backend = (*pgstore.Store)(nil)
)

// OpenBackend opens the backend selected by store.driver.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Backend, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		st, err := Open(cfg)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverPostgres:
		st, err := pgstore.Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
