// Package api defines wire-format types and the read-side service behind the
// HTTP API and the CLI. It translates store rows, run history and ingestion
// reports into transport-friendly DTOs so handlers never touch store types.
//
// # Key Types
//
// LicenseService: reporting queries (customers, products, paged license
// details, unpaged export) and the status aggregate.
//
// IngestReport: the JSON form of an ingestion run report.
//
// Status: checkpoint, table counts and recent runs.
//
// # Design Notes
//
// Request bodies and the license rows keep the snake_case column names the
// reporting frontend already consumes. Envelope and summary DTOs use
// camelCase. Every envelope carries ok=true on success; failures are written
// as {ok:false, error} by the HTTP layer.
package api
