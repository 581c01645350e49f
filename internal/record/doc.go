// Package record defines the raw metadata record model shared by source
// adapters and the title grouper: RawRecord, the Season variant, and the
// per-record error/result types used to isolate bad input.
package record
