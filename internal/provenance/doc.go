// Package provenance persists per-source record timestamps across runs.
//
// Each source has a full table (path,created,updated) and a diff table
// (path,updated) of timestamps observed by the latest run. Reconcile merges a
// diff into the table: created is write-once and updated never moves
// backwards.
package provenance
