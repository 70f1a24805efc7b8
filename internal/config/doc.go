// Package config loads, normalizes, and validates licensesync configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SCORM_TOKEN and LICENSESYNC_PG_DSN. The Config type centralizes every knob the
// CLI, daemon, and ingestion pipeline need, and is passed by pointer into each
// component constructor; nothing below cmd/ reads the environment directly.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and ErrConfiguration-tagged
// validation errors.
package config
