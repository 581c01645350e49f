// Package forum adapts a forum thread that catalogues BEQ posts. It reads
// pages previously cached on disk (first.html plus post-<id>.html) and never
// touches the network. Records carry no title, so the grouper names them from
// the link text.
package forum
