package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	// DumpDir receives JSON post-mortem files for failed rows and failed runs.
	// LogDir and DumpDir default to subdirectories of DataDir.
	DumpDir string `toml:"dump_dir"`
}

// Upstream contains the learning-platform report API settings.
type Upstream struct {
	BaseURL           string  `toml:"base_url"`
	Token             string  `toml:"token"`
	Password          string  `toml:"password"`
	ID                string  `toml:"id"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	// RetryAttempts of 1 disables retries; every page must succeed on the first try.
	RetryAttempts int `toml:"retry_attempts"`
}

// Store selects and configures the relational backend.
type Store struct {
	Driver                 string `toml:"driver"`
	SQLitePath             string `toml:"sqlite_path"`
	PostgresDSN            string `toml:"postgres_dsn"`
	MaxConns               int    `toml:"max_conns"`
	PostgresSimpleProtocol bool   `toml:"postgres_simple_protocol"`
}

// Ingest controls the ingestion pipeline.
type Ingest struct {
	FullStartDate    string `toml:"full_start_date"`
	WriteConcurrency int    `toml:"write_concurrency"`
	Audit            bool   `toml:"audit"`
}

// API contains the HTTP surface configuration.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Daemon contains long-running process settings.
type Daemon struct {
	// IngestIntervalMinutes schedules periodic ingestion; 0 disables the schedule.
	IngestIntervalMinutes int `toml:"ingest_interval_minutes"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	OnSuccess      bool   `toml:"on_success"`
	OnFailure      bool   `toml:"on_failure"`
}

// Export contains CSV export upload settings.
type Export struct {
	SFTPHost              string `toml:"sftp_host"`
	SFTPPort              int    `toml:"sftp_port"`
	SFTPUser              string `toml:"sftp_user"`
	SFTPPassword          string `toml:"sftp_password"`
	SFTPRemoteDir         string `toml:"sftp_remote_dir"`
	InsecureIgnoreHostKey bool   `toml:"insecure_ignore_host_key"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for licensesync.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and dump directories
//   - Upstream: report API credentials and transport knobs
//   - Store: sqlite or postgres backend
//   - Ingest: full-history start date and write fan-out
//   - API: HTTP bind address and optional bearer token
//   - Daemon: periodic ingestion schedule
//   - Notifications: ntfy push notification settings
//   - Export: SFTP upload target for CSV exports
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Upstream      Upstream      `toml:"upstream"`
	Store         Store         `toml:"store"`
	Ingest        Ingest        `toml:"ingest"`
	API           API           `toml:"api"`
	Daemon        Daemon        `toml:"daemon"`
	Notifications Notifications `toml:"notifications"`
	Export        Export        `toml:"export"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/licensesync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("licensesync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if strings.TrimSpace(c.Paths.DumpDir) != "" {
		dirs = append(dirs, c.Paths.DumpDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the single-instance ingestion lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "ingest.lock")
}

// UpstreamTimeout returns the per-request upstream timeout.
func (c *Config) UpstreamTimeout() time.Duration {
	if c.Upstream.TimeoutSeconds <= 0 {
		return defaultUpstreamTimeout * time.Second
	}
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

// IngestInterval returns the daemon schedule, zero when disabled.
func (c *Config) IngestInterval() time.Duration {
	if c.Daemon.IngestIntervalMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Daemon.IngestIntervalMinutes) * time.Minute
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
