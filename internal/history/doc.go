// Package history keeps a SQLite record of engine runs and of every digest a
// run published. It backs `beqcat history` and lets a run report which
// entries are new or changed since the last time their path was seen.
//
// History is diagnostic: the catalogue outputs never depend on it.
package history
