package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"licensesync/internal/checkpoint"
	"licensesync/internal/config"
	"licensesync/internal/license"
	"licensesync/internal/logging"
	"licensesync/internal/notifications"
	"licensesync/internal/services"
)

// Fetcher returns every raw row for an inclusive date window.
type Fetcher interface {
	FetchAll(ctx context.Context, from, to string) ([]license.RawRecord, error)
}

// Sink persists canonical rows and their raw audit payloads.
type Sink interface {
	Upsert(ctx context.Context, rec license.Record) error
	AppendAudit(ctx context.Context, entry license.AuditEntry) error
}

// RunRecorder stores run history.
type RunRecorder interface {
	RecordRun(ctx context.Context, run license.RunRecord) error
}

// AuditPolicy decides what happens to the raw audit trail on each write.
type AuditPolicy int

const (
	// AuditBestEffort appends the raw payload before each upsert. Failures are
	// logged and counted but never fail the row.
	AuditBestEffort AuditPolicy = iota
	// AuditDisabled skips the audit table.
	AuditDisabled
)

// Options configures an Orchestrator.
type Options struct {
	FullStartDate    string
	WriteConcurrency int
	Audit            AuditPolicy
	DumpDir          string
	LockPath         string
}

// OptionsFromConfig derives orchestrator options from configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		FullStartDate:    cfg.Ingest.FullStartDate,
		WriteConcurrency: cfg.Ingest.WriteConcurrency,
		Audit:            AuditDisabled,
		DumpDir:          cfg.Paths.DumpDir,
		LockPath:         cfg.LockPath(),
	}
	if cfg.Ingest.Audit {
		opts.Audit = AuditBestEffort
	}
	return opts
}

// Dependencies are the collaborators of an Orchestrator. Recorder, Notifier,
// Logger and Clock are optional.
type Dependencies struct {
	Fetcher    Fetcher
	Sink       Sink
	Checkpoint *checkpoint.Store
	Recorder   RunRecorder
	Notifier   notifications.Service
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Orchestrator drives ingestion runs.
type Orchestrator struct {
	opts    Options
	deps    Dependencies
	logger  *slog.Logger
	running atomic.Bool
}

// New constructs an Orchestrator.
func New(opts Options, deps Dependencies) *Orchestrator {
	if opts.WriteConcurrency <= 0 {
		opts.WriteConcurrency = 1
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	return &Orchestrator{
		opts:   opts,
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "ingest"),
	}
}

// Running reports whether a run is in progress in this process.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Run performs an incremental run from the checkpoint to today.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	return o.RunWithOptions(ctx, RunOptions{})
}

// RunWithOptions performs a single ingestion run.
func (o *Orchestrator) RunWithOptions(ctx context.Context, ro RunOptions) (Report, error) {
	if !o.running.CompareAndSwap(false, true) {
		return Report{}, services.Wrap(services.ErrRunInProgress, "ingest", "run", "an ingestion run is already active", nil)
	}
	defer o.running.Store(false)

	unlock, err := acquireRunLock(o.opts.LockPath)
	if err != nil {
		return Report{}, err
	}
	defer func() {
		if err := unlock(); err != nil {
			o.logger.Warn("release ingest lock failed", logging.Error(err))
		}
	}()

	started := o.deps.Clock()
	report := Report{RunID: uuid.NewString(), DryRun: ro.DryRun}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, o.logger)

	from, to, err := o.determineWindow(services.WithStage(ctx, "determine_window"), ro, started)
	report.FromDate, report.ToDate = from, to
	if err != nil {
		return o.fail(ctx, logger, report, started, "determine_window", err)
	}
	logger.Info("ingest run started",
		logging.String("from", from),
		logging.String("to", to),
		logging.Bool("dry_run", ro.DryRun),
		logging.Int("limit", ro.Limit),
	)

	rows, err := o.deps.Fetcher.FetchAll(services.WithStage(ctx, "fetch"), from, to)
	if err != nil {
		return o.fail(ctx, logger, report, started, "fetch", err)
	}
	report.Fetched = len(rows)
	if ro.Limit > 0 && len(rows) > ro.Limit {
		rows = rows[:ro.Limit]
	}
	logger.Info("fetch complete", logging.Int("rows", report.Fetched))

	if len(rows) > 0 {
		o.write(services.WithStage(ctx, "write"), logger, &report, rows, ro.DryRun)
	}
	if err := ctx.Err(); err != nil {
		return o.fail(ctx, logger, report, started, "write", err)
	}

	if o.shouldAdvance(ro, to, started) {
		if err := o.deps.Checkpoint.SetLast(services.WithStage(ctx, "checkpoint"), to); err != nil {
			return o.fail(ctx, logger, report, started, "checkpoint", err)
		}
		report.CheckpointAdvanced = true
	}

	o.finish(&report, started)
	o.record(ctx, logger, report, started, license.RunSucceeded, "")
	logger.Info("ingest run complete",
		logging.Int("fetched", report.Fetched),
		logging.Int("upserted", report.Upserted),
		logging.Int("failed", report.Failed),
		logging.Int("audit_failures", report.AuditFailures),
		logging.Bool("checkpoint_advanced", report.CheckpointAdvanced),
		logging.Duration("duration", report.Duration),
	)
	if !ro.DryRun {
		summary := notifications.IngestSummary{
			FromDate: report.FromDate,
			ToDate:   report.ToDate,
			Fetched:  report.Fetched,
			Upserted: report.Upserted,
			Failed:   report.Failed,
			Duration: report.Duration,
		}
		if err := o.deps.Notifier.NotifyIngestCompleted(ctx, summary); err != nil {
			logger.Warn("ingest completion notification failed", logging.Error(err))
		}
	}
	return report, nil
}

func (o *Orchestrator) determineWindow(ctx context.Context, ro RunOptions, now time.Time) (string, string, error) {
	from := ro.From
	if from == "" {
		last, ok, err := o.deps.Checkpoint.GetLast(ctx)
		if err != nil {
			return "", "", err
		}
		if ok {
			from = last
		} else {
			from = o.opts.FullStartDate
		}
	}
	to := ro.To
	if to == "" {
		to = today(now)
	}

	fromDate, err := time.Parse(config.DateLayout, from)
	if err != nil {
		return from, to, services.Wrap(services.ErrValidation, "ingest", "window", fmt.Sprintf("invalid from date %q", from), err)
	}
	toDate, err := time.Parse(config.DateLayout, to)
	if err != nil {
		return from, to, services.Wrap(services.ErrValidation, "ingest", "window", fmt.Sprintf("invalid to date %q", to), err)
	}
	if fromDate.After(toDate) {
		return from, to, services.Wrap(services.ErrValidation, "ingest", "window", fmt.Sprintf("from %s is after to %s", from, to), nil)
	}
	return from, to, nil
}

// shouldAdvance holds the checkpoint still for runs that did not cover the
// window up to today in full.
func (o *Orchestrator) shouldAdvance(ro RunOptions, to string, now time.Time) bool {
	return !ro.DryRun && ro.Limit == 0 && to == today(now)
}

func (o *Orchestrator) write(ctx context.Context, logger *slog.Logger, report *Report, rows []license.RawRecord, dryRun bool) {
	var upserted, failed, auditFailures, provisional atomic.Int64
	sourceFile := fmt.Sprintf("%s-%s.json", report.FromDate, report.ToDate)

	forEachBounded(ctx, rows, o.opts.WriteConcurrency, func(ctx context.Context, idx int, raw license.RawRecord) {
		rec := license.Normalize(raw, report.FromDate, report.ToDate, 0)
		if rec.IsProvisional == 1 {
			provisional.Add(1)
		}
		if dryRun {
			return
		}

		if o.opts.Audit == AuditBestEffort {
			if err := o.appendAudit(ctx, raw, rec, sourceFile, idx); err != nil {
				auditFailures.Add(1)
				logger.Warn("audit append failed",
					logging.Int("row", idx),
					logging.String("natural_key_hash", rec.NaturalKeyHash),
					logging.Error(err),
				)
			}
		}

		if err := o.deps.Sink.Upsert(ctx, rec); err != nil {
			failed.Add(1)
			logger.Error("upsert failed",
				logging.Int("row", idx),
				logging.String("natural_key_hash", rec.NaturalKeyHash),
				logging.Error(err),
			)
			name := fmt.Sprintf("upsert-fail-%s-%d.json", report.RunID, idx)
			dump := rowFailureDump{
				RunID:          report.RunID,
				RowIndex:       idx,
				NaturalKeyHash: rec.NaturalKeyHash,
				Error:          err.Error(),
				Raw:            raw,
			}
			if _, dumpErr := writeDump(o.opts.DumpDir, name, dump); dumpErr != nil {
				logger.Warn("write row failure dump failed", logging.Error(dumpErr))
			}
			return
		}
		upserted.Add(1)
	})

	report.Upserted = int(upserted.Load())
	report.Failed = int(failed.Load())
	report.AuditFailures = int(auditFailures.Load())
	report.Provisional = int(provisional.Load())
}

func (o *Orchestrator) appendAudit(ctx context.Context, raw license.RawRecord, rec license.Record, sourceFile string, idx int) error {
	payload, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode raw row: %w", err)
	}
	return o.deps.Sink.AppendAudit(ctx, license.AuditEntry{
		NaturalKeyHash: rec.NaturalKeyHash,
		Payload:        payload,
		SourceFile:     sourceFile,
		SourceRowIndex: idx,
		FetchDateFrom:  rec.FetchDateFrom,
		FetchDateTo:    rec.FetchDateTo,
		SourcePage:     rec.SourcePage,
	})
}

// fail finalizes a failed run: dump, history, notification. The returned error
// carries the stage so callers can report where the run stopped.
func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, report Report, started time.Time, stage string, cause error) (Report, error) {
	o.finish(&report, started)
	logger.Error("ingest run failed",
		logging.String(logging.FieldStage, stage),
		logging.String("from", report.FromDate),
		logging.String("to", report.ToDate),
		logging.Error(cause),
	)

	dump := runFailureDump{
		RunID:    report.RunID,
		FromDate: report.FromDate,
		ToDate:   report.ToDate,
		Stage:    stage,
		Error:    cause.Error(),
		FailedAt: o.deps.Clock().UTC(),
	}
	path, err := writeDump(o.opts.DumpDir, fmt.Sprintf("ingest-error-%s.json", report.RunID), dump)
	if err != nil {
		logger.Warn("write run failure dump failed", logging.Error(err))
	}
	report.FailureDump = path

	// History and notification must outlive a canceled run context.
	bg := context.WithoutCancel(ctx)
	o.record(bg, logger, report, started, license.RunFailed, cause.Error())
	if !report.DryRun {
		if err := o.deps.Notifier.NotifyIngestFailed(bg, report.FromDate, report.ToDate, cause); err != nil {
			logger.Warn("ingest failure notification failed", logging.Error(err))
		}
	}

	return report, fmt.Errorf("ingest %s: %w", stage, cause)
}

func (o *Orchestrator) finish(report *Report, started time.Time) {
	report.Duration = o.deps.Clock().Sub(started)
	report.DurationSeconds = report.Duration.Seconds()
}

func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, report Report, started time.Time, status, message string) {
	if o.deps.Recorder == nil || report.DryRun {
		return
	}
	run := license.RunRecord{
		RunID:         report.RunID,
		StartedAt:     started.UTC(),
		FinishedAt:    started.Add(report.Duration).UTC(),
		FromDate:      report.FromDate,
		ToDate:        report.ToDate,
		Fetched:       report.Fetched,
		Upserted:      report.Upserted,
		Failed:        report.Failed,
		AuditFailures: report.AuditFailures,
		DryRun:        report.DryRun,
		Status:        status,
		Error:         message,
	}
	if err := o.deps.Recorder.RecordRun(ctx, run); err != nil {
		logger.Warn("record ingest run failed", logging.Error(err))
	}
}

func today(now time.Time) string {
	return now.UTC().Format(config.DateLayout)
}
