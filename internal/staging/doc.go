// Package staging holds a run's rendered output until it is published. Files
// are written to a private directory under <output>/.staging and moved into
// place only after every artifact rendered, so a failed run leaves the
// previous catalogue untouched.
package staging
