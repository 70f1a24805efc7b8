// Package app assembles the runtime object graph shared by the CLI and the
// daemon: store backend, checkpoint, upstream transport, orchestrator and
// reporting service.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"licensesync/internal/api"
	"licensesync/internal/checkpoint"
	"licensesync/internal/config"
	"licensesync/internal/ingest"
	"licensesync/internal/notifications"
	"licensesync/internal/store"
	"licensesync/internal/upstream"
)

// Runtime holds the wired collaborators for one process.
type Runtime struct {
	Config       *config.Config
	Logger       *slog.Logger
	Store        store.Backend
	Checkpoint   *checkpoint.Store
	Transport    *upstream.HTTPTransport
	Orchestrator *ingest.Orchestrator
	Licenses     *api.LicenseService
	Notifier     notifications.Service
}

// Open connects the configured backend and wires everything on top of it.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	backend, err := store.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return Wire(cfg, backend, upstream.NewHTTPTransport(cfg, logger), logger), nil
}

// Wire builds a Runtime over an already open backend and transport.
func Wire(cfg *config.Config, backend store.Backend, transport *upstream.HTTPTransport, logger *slog.Logger) *Runtime {
	cp := checkpoint.New(backend)
	notifier := notifications.NewService(cfg)
	orch := ingest.New(ingest.OptionsFromConfig(cfg), ingest.Dependencies{
		Fetcher:    upstream.NewFetcher(transport, logger),
		Sink:       backend,
		Checkpoint: cp,
		Recorder:   backend,
		Notifier:   notifier,
		Logger:     logger,
	})
	return &Runtime{
		Config:       cfg,
		Logger:       logger,
		Store:        backend,
		Checkpoint:   cp,
		Transport:    transport,
		Orchestrator: orch,
		Licenses:     api.NewLicenseService(backend, cp, orch.Running),
		Notifier:     notifier,
	}
}

// Close releases the store.
func (r *Runtime) Close() error {
	if r == nil || r.Store == nil {
		return nil
	}
	return r.Store.Close()
}
