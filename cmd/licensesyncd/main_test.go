package main

import "testing"

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestConfigPathFromEnvironment(t *testing.T) {
	if got := configPath(envOf(nil)); got != "" {
		t.Fatalf("expected empty path, got %q", got)
	}
	got := configPath(envOf(map[string]string{"LICENSESYNC_CONFIG": "  /etc/licensesync.toml "}))
	if got != "/etc/licensesync.toml" {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestRunOptionsFromEnvironment(t *testing.T) {
	opts := runOptions(envOf(map[string]string{
		"LICENSESYNC_LOG_LEVEL": "debug",
		"LICENSESYNC_DEV":       "TRUE",
	}))
	if opts.LogLevel != "debug" || !opts.Development {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if runOptions(envOf(nil)).Development {
		t.Fatal("development should default to false")
	}
}
