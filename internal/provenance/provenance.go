package provenance

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"beqcat/internal/fileutil"
)

// Times holds the created and updated timestamps (unix seconds) of one record.
type Times struct {
	Created int64
	Updated int64
}

// Table maps source-relative record paths to their timestamps.
type Table map[string]Times

// DiffEntry is one newly observed or changed path and its timestamp.
type DiffEntry struct {
	Path      string
	Timestamp int64
}

// TimesFile and DiffFile name the persisted tables for a source.
func TimesFile(dir, sourceID string) string { return filepath.Join(dir, sourceID+".times.csv") }
func DiffFile(dir, sourceID string) string  { return filepath.Join(dir, sourceID+".diff.csv") }

// Lookup returns the timestamps for path.
func (t Table) Lookup(path string) (Times, bool) {
	v, ok := t[path]
	return v, ok
}

// Paths returns the tracked paths in sorted order.
func (t Table) Paths() []string {
	paths := make([]string, 0, len(t))
	for p := range t {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Reconcile merges diff into existing and returns a new table. A tracked
// path keeps its created time and its updated time only moves forward; an
// untracked path is created and updated at the diff timestamp. Applying the
// same diff twice yields the same table.
func Reconcile(existing Table, diff []DiffEntry) Table {
	out := make(Table, len(existing)+len(diff))
	for p, v := range existing {
		out[p] = v
	}
	for _, d := range diff {
		if d.Path == "" {
			continue
		}
		cur, ok := out[d.Path]
		if !ok {
			out[d.Path] = Times{Created: d.Timestamp, Updated: d.Timestamp}
			continue
		}
		if d.Timestamp > cur.Updated {
			cur.Updated = d.Timestamp
		}
		out[d.Path] = cur
	}
	return out
}

// MergeDiffs concatenates diffs keeping, per path, the latest timestamp, and
// returns them sorted by path.
func MergeDiffs(diffs ...[]DiffEntry) []DiffEntry {
	latest := make(map[string]int64)
	for _, diff := range diffs {
		for _, d := range diff {
			if d.Path == "" {
				continue
			}
			if ts, ok := latest[d.Path]; !ok || d.Timestamp > ts {
				latest[d.Path] = d.Timestamp
			}
		}
	}
	out := make([]DiffEntry, 0, len(latest))
	for p, ts := range latest {
		out = append(out, DiffEntry{Path: p, Timestamp: ts})
	}
	slices.SortFunc(out, func(a, b DiffEntry) int { return strings.Compare(a.Path, b.Path) })
	return out
}

// Load reads the persisted table for sourceID. A missing file is an empty
// table.
func Load(dir, sourceID string) (Table, error) {
	rows, err := readCSV(TimesFile(dir, sourceID), 3)
	if err != nil {
		return nil, err
	}
	table := make(Table, len(rows))
	for i, row := range rows {
		created, err := strconv.ParseInt(strings.TrimSpace(row[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("provenance %s row %d: created: %w", sourceID, i+1, err)
		}
		updated, err := strconv.ParseInt(strings.TrimSpace(row[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("provenance %s row %d: updated: %w", sourceID, i+1, err)
		}
		if updated < created {
			updated = created
		}
		table[row[0]] = Times{Created: created, Updated: updated}
	}
	return table, nil
}

// LoadDiff reads the diff table for sourceID. A missing file is an empty diff.
func LoadDiff(dir, sourceID string) ([]DiffEntry, error) {
	rows, err := readCSV(DiffFile(dir, sourceID), 2)
	if err != nil {
		return nil, err
	}
	diff := make([]DiffEntry, 0, len(rows))
	for i, row := range rows {
		ts, err := strconv.ParseInt(strings.TrimSpace(row[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("provenance diff %s row %d: %w", sourceID, i+1, err)
		}
		diff = append(diff, DiffEntry{Path: row[0], Timestamp: ts})
	}
	return diff, nil
}

// Persist writes the full table and the run's diff for sourceID, both sorted
// by path so identical input produces identical bytes.
func Persist(dir, sourceID string, table Table, diff []DiffEntry) error {
	var full bytes.Buffer
	w := csv.NewWriter(&full)
	for _, p := range table.Paths() {
		v := table[p]
		if err := w.Write([]string{p, strconv.FormatInt(v.Created, 10), strconv.FormatInt(v.Updated, 10)}); err != nil {
			return fmt.Errorf("encode provenance: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode provenance: %w", err)
	}

	var changes bytes.Buffer
	w = csv.NewWriter(&changes)
	for _, d := range MergeDiffs(diff) {
		if err := w.Write([]string{d.Path, strconv.FormatInt(d.Timestamp, 10)}); err != nil {
			return fmt.Errorf("encode provenance diff: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode provenance diff: %w", err)
	}

	if err := fileutil.WriteFileAtomic(TimesFile(dir, sourceID), full.Bytes()); err != nil {
		return fmt.Errorf("write provenance %s: %w", sourceID, err)
	}
	if err := fileutil.WriteFileAtomic(DiffFile(dir, sourceID), changes.Bytes()); err != nil {
		return fmt.Errorf("write provenance diff %s: %w", sourceID, err)
	}
	return nil
}

func readCSV(path string, fields int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = fields
	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
