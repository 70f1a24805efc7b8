// Package main hosts the licensesync CLI entrypoint and command graph.
//
// Commands open the configured store directly and drive the same ingestion
// orchestrator and reporting service the daemon uses, so a one-off
// `licensesync ingest` from cron and the scheduled daemon run behave alike.
// The run lock under the data directory keeps the two from overlapping.
package main
