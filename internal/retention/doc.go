// Package retention carries a failed source's previously published rows,
// entries and pages into the current run so one broken author repository
// never empties its part of the catalogue.
package retention
