// Package textutil provides text processing helpers shared by the grouper and
// the materializer: case folding for title keys, Markdown-compatible anchor
// slugs, and filename sanitization for generated pages.
package textutil
