// Package main hosts the beqcat CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the catalogue engine and inspects what
// the last run left behind: per-source error lists, orphaned pages, the
// published catalogue and the SQLite run history. Configuration resolution,
// .env bootstrap and logger setup live here so subcommands only deal with
// presentation.
package main
