package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"licensesync/internal/api"
	"licensesync/internal/config"
	"licensesync/internal/ingest"
	"licensesync/internal/logging"
	"licensesync/internal/services"
)

// Daemon serves the HTTP API, runs scheduled ingestion and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	ingester Ingester
	licenses *api.LicenseService
	server   *apiServer
	interval time.Duration

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	IngestRunning  bool
	APIAddress     string
	LockFilePath   string
	IngestInterval time.Duration
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, ingester Ingester, licenses *api.LicenseService, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || ingester == nil || licenses == nil {
		return nil, errors.New("daemon requires config, ingester, and license service")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	lockPath := filepath.Join(cfg.Paths.DataDir, "licensesyncd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		ingester: ingester,
		licenses: licenses,
		server:   newAPIServer(cfg.API.Bind, cfg.API.Token, ingester, licenses, logger),
		interval: cfg.IngestInterval(),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, starts the API server and the ingest schedule.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another licensesyncd instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}
	d.cancel = cancel

	if d.interval > 0 {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.schedule(runCtx)
		}()
	}

	d.running.Store(true)
	d.logger.Info("licensesync daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.server.addr()),
		logging.Duration("ingest_interval", d.interval),
	)
	return nil
}

// Stop stops the schedule and the API server and releases the daemon lock.
// A scheduled run in flight is canceled and fails before its checkpoint.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("licensesync daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// TriggerIngest runs one incremental ingestion outside the schedule.
func (d *Daemon) TriggerIngest(ctx context.Context) error {
	report, err := d.ingester.RunWithOptions(ctx, ingest.RunOptions{})
	if err != nil {
		return err
	}
	d.logger.Info("triggered ingest finished",
		logging.String(logging.FieldRunID, report.RunID),
		logging.Int("upserted", report.Upserted),
		logging.Int("failed", report.Failed),
	)
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	return Status{
		Running:        d.running.Load(),
		IngestRunning:  d.ingester.Running(),
		APIAddress:     d.server.addr(),
		LockFilePath:   d.lockPath,
		IngestInterval: d.interval,
	}
}

func (d *Daemon) schedule(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runScheduled(ctx)
		}
	}
}

func (d *Daemon) runScheduled(ctx context.Context) {
	if d.ingester.Running() {
		d.logger.Info("scheduled ingest skipped; run already active")
		return
	}
	err := d.TriggerIngest(ctx)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrRunInProgress):
		d.logger.Info("scheduled ingest skipped; run already active")
	case ctx.Err() != nil:
		d.logger.Info("scheduled ingest interrupted by shutdown")
	default:
		d.logger.Error("scheduled ingest failed", logging.Error(err))
	}
}
