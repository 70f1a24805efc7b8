// Package ingest runs the license ingestion pipeline.
//
// A run moves through four stages: determine the window from the checkpoint,
// fetch every page for that window, normalize and write rows through a bounded
// worker pool, then advance the checkpoint. Row-level failures (a failed
// upsert, a failed audit append) are logged, counted and optionally dumped but
// never fail the run. Any fetch failure fails the run before the checkpoint
// moves, so the next run retries the same window.
//
// Only one run may be active per data directory. The Orchestrator holds an
// flock-based lock for the duration of a run and returns
// services.ErrRunInProgress to concurrent callers.
package ingest
