package config

const (
	defaultDataDir               = "~/.local/share/licensesync"
	defaultSQLiteFile            = "licensesync.db"
	defaultUpstreamBaseURL       = "https://app.scormproxy.com/awakelab/API/"
	defaultUpstreamTimeout       = 30
	defaultUpstreamRetryAttempts = 1
	defaultStoreDriver           = DriverSQLite
	defaultPostgresMaxConns      = 6
	defaultFullStartDate         = "2020-01-01"
	defaultWriteConcurrency      = 6
	defaultAPIBind               = "127.0.0.1:7490"
	defaultNotifyRequestTimeout  = 10
	defaultSFTPPort              = 22
	defaultSFTPRemoteDir         = "/"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Upstream: Upstream{
			BaseURL:        defaultUpstreamBaseURL,
			TimeoutSeconds: defaultUpstreamTimeout,
			RetryAttempts:  defaultUpstreamRetryAttempts,
		},
		Store: Store{
			Driver:   defaultStoreDriver,
			MaxConns: defaultPostgresMaxConns,
		},
		Ingest: Ingest{
			FullStartDate:    defaultFullStartDate,
			WriteConcurrency: defaultWriteConcurrency,
			Audit:            true,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			OnFailure:      true,
		},
		Export: Export{
			SFTPPort:      defaultSFTPPort,
			SFTPRemoteDir: defaultSFTPRemoteDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
