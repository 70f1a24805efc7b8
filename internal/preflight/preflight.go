package preflight

import (
	"context"

	"licensesync/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Pinger is anything that can prove it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Targets are the live collaborators to probe. Nil targets are skipped.
type Targets struct {
	Store    Pinger
	Upstream Pinger
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, targets Targets) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Paths.DumpDir != "" {
		results = append(results, CheckDirectoryAccess("Dump directory", cfg.Paths.DumpDir))
	}

	results = append(results, CheckCredentials(cfg.Upstream))

	if targets.Store != nil {
		results = append(results, CheckReachable(ctx, "Store ("+cfg.Store.Driver+")", targets.Store))
	}
	if targets.Upstream != nil {
		results = append(results, CheckReachable(ctx, "Upstream API", targets.Upstream))
	}

	if cfg.Export.SFTPHost != "" {
		results = append(results, CheckSFTPConfig(cfg.Export))
	}
	return results
}

// Failed returns only the failing results.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
