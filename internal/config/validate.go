package config

import (
	"fmt"
	"strings"
	"time"

	"licensesync/internal/services"
)

// DateLayout is the day-granularity format used for sync windows and checkpoints.
const DateLayout = "2006-01-02"

// Validate ensures the configuration is usable. Every returned error is tagged
// with services.ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.validateUpstream(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateUpstream() error {
	missing := make([]string, 0, 3)
	if c.Upstream.Token == "" {
		missing = append(missing, "upstream.token (SCORM_TOKEN)")
	}
	if c.Upstream.Password == "" {
		missing = append(missing, "upstream.password (SCORM_PASSWORD)")
	}
	if c.Upstream.ID == "" {
		missing = append(missing, "upstream.id (SCORM_ID)")
	}
	if len(missing) > 0 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/licensesync/config.toml"
		}
		return configError("%s required. Set the env vars or edit %s (create with 'licensesync config init')",
			strings.Join(missing, ", "), defaultPath)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return configError("upstream.timeout_seconds must not be negative")
	}
	if c.Upstream.RequestsPerSecond < 0 {
		return configError("upstream.requests_per_second must not be negative")
	}
	if c.Upstream.RetryAttempts < 1 {
		return configError("upstream.retry_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return configError("store.sqlite_path must be set for the sqlite driver")
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return configError("store.postgres_dsn (LICENSESYNC_PG_DSN) must be set for the postgres driver")
		}
	default:
		return configError("store.driver: unsupported value %q", c.Store.Driver)
	}
	if c.Store.MaxConns <= 0 {
		return configError("store.max_conns must be positive")
	}
	return nil
}

func (c *Config) validateIngest() error {
	if _, err := time.Parse(DateLayout, c.Ingest.FullStartDate); err != nil {
		return configError("ingest.full_start_date must be YYYY-MM-DD, got %q", c.Ingest.FullStartDate)
	}
	if c.Ingest.WriteConcurrency <= 0 {
		return configError("ingest.write_concurrency must be positive")
	}
	if c.Daemon.IngestIntervalMinutes < 0 {
		return configError("daemon.ingest_interval_minutes must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return configError("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func configError(format string, args ...any) error {
	return services.Wrap(services.ErrConfiguration, "config", "validate", fmt.Sprintf(format, args...), nil)
}
