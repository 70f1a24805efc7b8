// Package daemon coordinates the long-running licensesync process.
//
// It wires the ingestion orchestrator, the reporting service and the HTTP API
// into a single lifecycle with flock-based locking to prevent multiple
// instances. When daemon.ingest_interval_minutes is set, a scheduler triggers
// incremental runs on that cadence; overlapping triggers are skipped rather
// than queued.
//
// Keep orchestration logic here: the pipeline itself lives in ingest and the
// query surface in api, while the daemon focuses on startup, shutdown and
// high level coordination.
package daemon
