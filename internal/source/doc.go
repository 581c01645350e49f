// Package source defines the adapter contract every author repository
// implements, plus the registry that turns [[sources]] configuration into
// adapters. Concrete adapters live in the xmlrepo and forum subpackages.
package source
