// Package config loads, normalizes, and validates beqcat configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BEQCAT_OUTPUT_DIR. The Config type centralizes the source list, output
// layout and feed settings so the engine and CLI discover them in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
