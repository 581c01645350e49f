// Package catalogue defines the published catalogue entry, its CSV and JSON
// encodings, readers for a previously published catalogue, and fuzzy title
// search over it.
package catalogue
