// Package digest derives the stable content identity of catalogue entries and
// detects digests shared by unrelated entries.
package digest
