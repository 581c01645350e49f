// Package filterdecode converts the raw filter elements of a BEQ file into the
// display string and structured form carried by a record. The display string
// is what the catalogue hashes; its exact shape is owned by the decoder.
package filterdecode
