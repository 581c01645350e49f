// Package materialize renders the catalogue: the CSV and JSON listings, one
// Markdown page per canonical title, per-source and site index pages, and the
// RSS feed of recent changes.
//
// Rendering is a pure function of its input and happens entirely in memory;
// the engine publishes the result only once every artifact rendered.
package materialize
