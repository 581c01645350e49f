// Package engine runs the catalogue pipeline end to end.
//
// One Run takes the output lock, extracts every configured source in
// parallel, joins the results with each source's provenance table, detects
// digest collisions, carries forward the previous output of failed sources,
// renders the catalogue into a staging directory and only then publishes it
// over docs/. Provenance tables, per-source error lists, the SQLite history
// and meta/run.json are written after a successful publish.
package engine
