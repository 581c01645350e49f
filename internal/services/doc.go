// Package services defines shared utilities consumed by the run stages.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, source identifiers, and stage names
//     for logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     record-level, source-level, diagnostic, or fatal.
//
// Use these helpers when wiring new stage logic so failure isolation and
// observability stay uniform across the pipeline.
package services
