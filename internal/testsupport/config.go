package testsupport

import (
	"path/filepath"
	"testing"

	"licensesync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Upstream credentials are filled with placeholders so Validate passes.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.DumpDir = filepath.Join(base, "data", "dumps")
	cfgVal.Store.SQLitePath = filepath.Join(base, "data", "licensesync.db")
	cfgVal.Upstream.Token = "test-token"
	cfgVal.Upstream.Password = "test-password"
	cfgVal.Upstream.ID = "test-id"
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithUpstreamURL points the upstream transport at a test server.
func WithUpstreamURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upstream.BaseURL = url
	}
}

// WithAPIToken requires bearer authentication on the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Token = token
	}
}

// WithWriteConcurrency overrides the ingest fan-out.
func WithWriteConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ingest.WriteConcurrency = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
