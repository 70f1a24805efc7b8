package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"licensesync/internal/checkpoint"
	"licensesync/internal/ingest"
	"licensesync/internal/license"
	"licensesync/internal/services"
	"licensesync/internal/testsupport"
)

var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

type stubFetcher struct {
	mu    sync.Mutex
	rows  []license.RawRecord
	err   error
	calls []string
	block chan struct{}
}

func (f *stubFetcher) FetchAll(ctx context.Context, from, to string) ([]license.RawRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, from+".."+to)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.rows, f.err
}

func (f *stubFetcher) callsSnapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type memorySink struct {
	mu         sync.Mutex
	rows       map[string]license.Record
	audits     []license.AuditEntry
	failUpsert func(license.Record) bool
	failAudit  bool
}

func newMemorySink() *memorySink {
	return &memorySink{rows: make(map[string]license.Record)}
}

func (s *memorySink) Upsert(_ context.Context, rec license.Record) error {
	if s.failUpsert != nil && s.failUpsert(rec) {
		return errors.New("constraint violation")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rec.NaturalKeyHash] = rec
	return nil
}

func (s *memorySink) AppendAudit(_ context.Context, entry license.AuditEntry) error {
	if s.failAudit {
		return errors.New("audit table missing")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, entry)
	return nil
}

type memoryRecorder struct {
	mu   sync.Mutex
	runs []license.RunRecord
}

func (r *memoryRecorder) RecordRun(_ context.Context, run license.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

type harness struct {
	fetcher  *stubFetcher
	sink     *memorySink
	kv       *checkpoint.MemoryKV
	recorder *memoryRecorder
	orch     *ingest.Orchestrator
	opts     ingest.Options
}

func newHarness(t *testing.T, rows []license.RawRecord, mutate func(*ingest.Options)) *harness {
	t.Helper()
	base := t.TempDir()
	h := &harness{
		fetcher:  &stubFetcher{rows: rows},
		sink:     newMemorySink(),
		kv:       checkpoint.NewMemoryKV(),
		recorder: &memoryRecorder{},
		opts: ingest.Options{
			FullStartDate:    "2020-01-01",
			WriteConcurrency: 4,
			Audit:            ingest.AuditBestEffort,
			DumpDir:          filepath.Join(base, "dumps"),
			LockPath:         filepath.Join(base, "ingest.lock"),
		},
	}
	if mutate != nil {
		mutate(&h.opts)
	}
	h.orch = ingest.New(h.opts, ingest.Dependencies{
		Fetcher:    h.fetcher,
		Sink:       h.sink,
		Checkpoint: checkpoint.New(h.kv),
		Recorder:   h.recorder,
		Clock:      func() time.Time { return fixedNow },
	})
	return h
}

func (h *harness) checkpoint(t *testing.T) string {
	t.Helper()
	value, _, err := checkpoint.New(h.kv).GetLast(context.Background())
	if err != nil {
		t.Fatalf("GetLast: %v", err)
	}
	return value
}

func TestRunFirstRunUsesFullStartDateAndAdvancesCheckpoint(t *testing.T) {
	h := newHarness(t, testsupport.RawLicenses(25), nil)

	report, err := h.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.fetcher.calls) != 1 || h.fetcher.calls[0] != "2020-01-01..2024-06-15" {
		t.Fatalf("unexpected fetch windows: %v", h.fetcher.calls)
	}
	if report.Fetched != 25 || report.Upserted != 25 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !report.CheckpointAdvanced || h.checkpoint(t) != "2024-06-15" {
		t.Fatalf("expected checkpoint advanced to today, got %q", h.checkpoint(t))
	}
	if len(h.sink.rows) != 25 || len(h.sink.audits) != 25 {
		t.Fatalf("expected 25 rows and audits, got %d/%d", len(h.sink.rows), len(h.sink.audits))
	}
	if report.RunID == "" {
		t.Fatal("expected run id")
	}
	for _, rec := range h.sink.rows {
		if rec.FetchDateFrom == nil || *rec.FetchDateFrom != "2020-01-01" {
			t.Fatalf("expected fetch provenance on record, got %+v", rec.FetchDateFrom)
		}
	}
	if len(h.recorder.runs) != 1 || h.recorder.runs[0].Status != license.RunSucceeded {
		t.Fatalf("expected one succeeded run, got %+v", h.recorder.runs)
	}
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	h := newHarness(t, nil, nil)
	if err := h.kv.Set(context.Background(), checkpoint.LastFetchToKey, "2024-06-01"); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	report, err := h.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.FromDate != "2024-06-01" || report.ToDate != "2024-06-15" {
		t.Fatalf("unexpected window %s..%s", report.FromDate, report.ToDate)
	}
	if report.Fetched != 0 || report.Upserted != 0 {
		t.Fatalf("expected zero report, got %+v", report)
	}
	if h.checkpoint(t) != "2024-06-15" {
		t.Fatalf("expected empty window to still advance checkpoint, got %q", h.checkpoint(t))
	}
}

func TestRunCheckpointAtTodayFetchesSingleDay(t *testing.T) {
	h := newHarness(t, nil, nil)
	if err := h.kv.Set(context.Background(), checkpoint.LastFetchToKey, "2024-06-15"); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	report, err := h.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.fetcher.calls) != 1 || h.fetcher.calls[0] != "2024-06-15..2024-06-15" {
		t.Fatalf("expected a single-day window, got %v", h.fetcher.calls)
	}
	if report.Fetched != 0 || report.Failed != 0 {
		t.Fatalf("expected zero report, got %+v", report)
	}
	if h.checkpoint(t) != "2024-06-15" {
		t.Fatalf("expected checkpoint to stay at today, got %q", h.checkpoint(t))
	}
	if len(h.recorder.runs) != 1 || h.recorder.runs[0].Status != license.RunSucceeded {
		t.Fatalf("expected one succeeded run, got %+v", h.recorder.runs)
	}
}

func TestRunWriteFailureIsIsolated(t *testing.T) {
	h := newHarness(t, testsupport.RawLicenses(10), nil)
	h.sink.failUpsert = func(rec license.Record) bool {
		return rec.UserUsername != nil && *rec.UserUsername == "user003@example.com"
	}

	report, err := h.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Upserted != 9 || report.Failed != 1 {
		t.Fatalf("expected 9 upserted and 1 failed, got %+v", report)
	}
	if h.checkpoint(t) != "2024-06-15" {
		t.Fatalf("row failure must not block the checkpoint, got %q", h.checkpoint(t))
	}
	entries, err := os.ReadDir(h.opts.DumpDir)
	if err != nil {
		t.Fatalf("read dump dir: %v", err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "upsert-fail-") {
		t.Fatalf("expected one row failure dump, got %v", entries)
	}
}

func TestRunAuditFailureIsCountedNotPropagated(t *testing.T) {
	h := newHarness(t, testsupport.RawLicenses(5), nil)
	h.sink.failAudit = true

	report, err := h.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Upserted != 5 || report.Failed != 0 || report.AuditFailures != 5 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestRunAuditDisabledSkipsAuditTable(t *testing.T) {
	h := newHarness(t, testsupport.RawLicenses(3), func(o *ingest.Options) { o.Audit = ingest.AuditDisabled })
	if _, err := h.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.sink.audits) != 0 {
		t.Fatalf("expected no audit rows, got %d", len(h.sink.audits))
	}
}

func TestRunFetchFailureLeavesCheckpoint(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.fetcher.err = services.Wrap(services.ErrTransport, "upstream", "fetch page", "page 2", errors.New("connection reset"))
	if err := h.kv.Set(context.Background(), checkpoint.LastFetchToKey, "2024-06-01"); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	report, err := h.orch.Run(context.Background())
	if err == nil {
		t.Fatal("expected fetch failure")
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport marker, got %v", err)
	}
	if h.checkpoint(t) != "2024-06-01" {
		t.Fatalf("checkpoint moved on failure: %q", h.checkpoint(t))
	}
	if report.FailureDump == "" {
		t.Fatal("expected failure dump path")
	}
	if _, statErr := os.Stat(report.FailureDump); statErr != nil {
		t.Fatalf("expected failure dump on disk: %v", statErr)
	}
	if len(h.sink.rows) != 0 {
		t.Fatal("expected no writes after fetch failure")
	}
	if len(h.recorder.runs) != 1 || h.recorder.runs[0].Status != license.RunFailed {
		t.Fatalf("expected one failed run, got %+v", h.recorder.runs)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	h := newHarness(t, testsupport.RawLicenses(4), nil)

	report, err := h.orch.RunWithOptions(context.Background(), ingest.RunOptions{DryRun: true})
	if err != nil {
		t.Fatalf("RunWithOptions: %v", err)
	}
	if report.Fetched != 4 || report.Upserted != 0 || !report.DryRun {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(h.sink.rows) != 0 || len(h.sink.audits) != 0 {
		t.Fatal("dry run must not write")
	}
	if h.checkpoint(t) != "" {
		t.Fatalf("dry run must not advance checkpoint, got %q", h.checkpoint(t))
	}
	if len(h.recorder.runs) != 0 {
		t.Fatal("dry run must not record history")
	}
}

func TestRunWindowOverride(t *testing.T) {
	h := newHarness(t, testsupport.RawLicenses(2), nil)

	report, err := h.orch.RunWithOptions(context.Background(), ingest.RunOptions{From: "2023-01-01", To: "2023-01-31"})
	if err != nil {
		t.Fatalf("RunWithOptions: %v", err)
	}
	if h.fetcher.calls[0] != "2023-01-01..2023-01-31" {
		t.Fatalf("unexpected window %v", h.fetcher.calls)
	}
	if report.CheckpointAdvanced || h.checkpoint(t) != "" {
		t.Fatal("historical window must not advance checkpoint")
	}
}

func TestRunLimitCapsWrites(t *testing.T) {
	h := newHarness(t, testsupport.RawLicenses(10), nil)

	report, err := h.orch.RunWithOptions(context.Background(), ingest.RunOptions{Limit: 3})
	if err != nil {
		t.Fatalf("RunWithOptions: %v", err)
	}
	if report.Fetched != 10 || report.Upserted != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.CheckpointAdvanced {
		t.Fatal("limited run must not advance checkpoint")
	}
}

func TestRunRejectsInvertedWindow(t *testing.T) {
	h := newHarness(t, nil, nil)
	_, err := h.orch.RunWithOptions(context.Background(), ingest.RunOptions{From: "2024-07-01", To: "2024-06-01"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(h.fetcher.calls) != 0 {
		t.Fatal("expected no fetch for invalid window")
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.fetcher.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.orch.Run(context.Background())
		done <- err
	}()

	deadline := time.After(2 * time.Second)
	for !h.orch.Running() {
		select {
		case <-deadline:
			t.Fatal("first run never started")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	if _, err := h.orch.Run(context.Background()); !errors.Is(err, services.ErrRunInProgress) {
		t.Fatalf("expected run in progress, got %v", err)
	}
	close(h.fetcher.block)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestRunLockHeldByAnotherOrchestrator(t *testing.T) {
	first := newHarness(t, nil, nil)
	first.fetcher.block = make(chan struct{})
	second := ingest.New(first.opts, ingest.Dependencies{
		Fetcher:    &stubFetcher{},
		Sink:       newMemorySink(),
		Checkpoint: checkpoint.New(checkpoint.NewMemoryKV()),
		Clock:      func() time.Time { return fixedNow },
	})

	done := make(chan error, 1)
	go func() {
		_, err := first.orch.Run(context.Background())
		done <- err
	}()
	for !first.orch.Running() {
		time.Sleep(5 * time.Millisecond)
	}
	// Running flips before the file lock is taken; wait until the fetch blocks.
	for len(first.fetcher.callsSnapshot()) == 0 {
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := second.Run(context.Background()); !errors.Is(err, services.ErrRunInProgress) {
		t.Fatalf("expected lock contention, got %v", err)
	}
	close(first.fetcher.block)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestRunCanceledContextFailsBeforeCheckpoint(t *testing.T) {
	h := newHarness(t, testsupport.RawLicenses(50), func(o *ingest.Options) { o.WriteConcurrency = 1 })
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	h.sink.failUpsert = func(license.Record) bool {
		once.Do(cancel)
		return false
	}

	if _, err := h.orch.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled error, got %v", err)
	}
	if h.checkpoint(t) != "" {
		t.Fatalf("canceled run must not advance checkpoint, got %q", h.checkpoint(t))
	}
}
