// Package language normalizes the free-text audio language field authors put
// in their metadata into display names.
//
// A small table covers the spellings BEQ authors actually use; other ISO 639
// codes resolve through golang.org/x/text.
package language
