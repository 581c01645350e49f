// Package xmlrepo adapts a local checkout of an author repository of BEQ XML
// files. Each file is a minidsp settings export whose beq_metadata block
// carries the catalogue fields; files under a TV directory, or carrying a
// beq_season element, are treated as TV.
package xmlrepo
