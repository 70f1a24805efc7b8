// Package store persists licenses, audit rows, the sync checkpoint and
// ingestion history in SQLite.
//
// The schema is created by the embedded, versioned migrations under
// migrations/. Every write retries briefly when SQLite reports the database
// as busy, which happens when the CLI and the daemon share a file.
//
// OpenBackend selects between this package and pgstore based on the
// store.driver configuration value; callers program against Backend.
package store
