package main

import (
	"strings"

	"licensesync/internal/daemonrun"
)

// configPath lets service managers point the daemon at a config file without
// command-line flags. Empty falls back to the default search path.
func configPath(getenv func(string) string) string {
	return strings.TrimSpace(getenv("LICENSESYNC_CONFIG"))
}

func runOptions(getenv func(string) string) daemonrun.Options {
	dev := strings.TrimSpace(getenv("LICENSESYNC_DEV"))
	return daemonrun.Options{
		LogLevel:    strings.TrimSpace(getenv("LICENSESYNC_LOG_LEVEL")),
		Development: dev == "1" || strings.EqualFold(dev, "true"),
	}
}
