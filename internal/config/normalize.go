package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeUpstream()
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeIngest()
	c.normalizeAPI()
	c.normalizeExport()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DumpDir) == "" {
		c.Paths.DumpDir = filepath.Join(c.Paths.DataDir, "dumps")
	}
	if c.Paths.DumpDir, err = expandPath(c.Paths.DumpDir); err != nil {
		return fmt.Errorf("paths.dump_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeUpstream() {
	c.Upstream.BaseURL = strings.TrimSpace(c.Upstream.BaseURL)
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = defaultUpstreamBaseURL
	}
	c.Upstream.Token = envFallback(c.Upstream.Token, "SCORM_TOKEN")
	c.Upstream.Password = envFallback(c.Upstream.Password, "SCORM_PASSWORD")
	c.Upstream.ID = envFallback(c.Upstream.ID, "SCORM_ID")
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = defaultUpstreamTimeout
	}
	if c.Upstream.RetryAttempts == 0 {
		c.Upstream.RetryAttempts = defaultUpstreamRetryAttempts
	}
}

func (c *Config) normalizeStore() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
	}
	if strings.TrimSpace(c.Store.SQLitePath) == "" {
		c.Store.SQLitePath = filepath.Join(c.Paths.DataDir, defaultSQLiteFile)
	}
	var err error
	if c.Store.SQLitePath, err = expandPath(strings.TrimSpace(c.Store.SQLitePath)); err != nil {
		return fmt.Errorf("store.sqlite_path: %w", err)
	}
	c.Store.PostgresDSN = envFallback(c.Store.PostgresDSN, "LICENSESYNC_PG_DSN")
	if c.Store.MaxConns == 0 {
		c.Store.MaxConns = defaultPostgresMaxConns
	}
	return nil
}

func (c *Config) normalizeIngest() {
	c.Ingest.FullStartDate = strings.TrimSpace(c.Ingest.FullStartDate)
	if c.Ingest.FullStartDate == "" {
		c.Ingest.FullStartDate = defaultFullStartDate
	}
	if c.Ingest.WriteConcurrency == 0 {
		c.Ingest.WriteConcurrency = defaultWriteConcurrency
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = envFallback(c.API.Token, "LICENSESYNC_API_TOKEN")
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeExport() {
	c.Export.SFTPHost = strings.TrimSpace(c.Export.SFTPHost)
	c.Export.SFTPUser = strings.TrimSpace(c.Export.SFTPUser)
	c.Export.SFTPPassword = envFallback(c.Export.SFTPPassword, "LICENSESYNC_SFTP_PASSWORD")
	if c.Export.SFTPPort == 0 {
		c.Export.SFTPPort = defaultSFTPPort
	}
	if strings.TrimSpace(c.Export.SFTPRemoteDir) == "" {
		c.Export.SFTPRemoteDir = defaultSFTPRemoteDir
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(env)
	}
	return ""
}
