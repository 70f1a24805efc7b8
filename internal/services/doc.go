// Package services defines shared utilities consumed by the ingestion pipeline
// and its collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, pipeline stages, and request
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (transport, malformed upstream data, configuration)
//     inspectable with errors.Is after wrapping.
//
// Use these helpers when wiring new components so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
