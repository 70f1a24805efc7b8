// Package notifications pushes ingestion outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never need to check whether notifications are enabled. Success
// notifications are opt-in; failure notifications are on by default.
package notifications
