package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"beqcat/internal/fileutil"
	"beqcat/internal/history"
)

// ReportFile is the run report written to the meta directory.
const ReportFile = "run.json"

// Source status values.
const (
	SourceOK     = "ok"
	SourceFailed = "failed"
)

// Report summarizes one run. It is written to meta/run.json and returned to
// the caller.
type Report struct {
	RunID          string            `json:"run_id"`
	Now            time.Time         `json:"now"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at"`
	Status         string            `json:"status"`
	Sources        []SourceReport    `json:"sources"`
	Entries        int               `json:"entries"`
	Retained       int               `json:"retained_entries"`
	FeedItems      int               `json:"feed_items"`
	Published      int               `json:"published_files"`
	Orphans        []string          `json:"orphans"`
	Collisions     []CollisionReport `json:"collisions"`
	ProvenanceGaps []GapReport       `json:"provenance_gaps"`
	Changes        []ChangeReport    `json:"changes,omitempty"`
}

// SourceReport is the per-source outcome.
type SourceReport struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Records      int    `json:"records"`
	Titles       int    `json:"titles"`
	Entries      int    `json:"entries"`
	RecordErrors int    `json:"record_errors"`
	Error        string `json:"error,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
}

// CollisionReport describes two distinct entries sharing a digest.
type CollisionReport struct {
	Digest      string `json:"digest"`
	FirstAuthor string `json:"first_author"`
	FirstTitle  string `json:"first_title"`
	FirstPath   string `json:"first_path"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Path        string `json:"path"`
}

// GapReport names a record that had no provenance timestamps.
type GapReport struct {
	Source string `json:"source"`
	Path   string `json:"path"`
}

// ChangeReport is a cross-run identity change taken from history.
type ChangeReport struct {
	Kind     history.ChangeKind `json:"kind"`
	Author   string             `json:"author"`
	Path     string             `json:"path"`
	Title    string             `json:"title"`
	Digest   string             `json:"digest"`
	Previous string             `json:"previous,omitempty"`
}

// FailedSources lists the IDs of sources that failed, in configured order.
func (r *Report) FailedSources() []string {
	var ids []string
	for _, s := range r.Sources {
		if s.Status == SourceFailed {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// RecordErrors totals record errors across sources.
func (r *Report) RecordErrors() int {
	total := 0
	for _, s := range r.Sources {
		total += s.RecordErrors
	}
	return total
}

func writeReport(metaDir string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}
	return fileutil.WriteFileAtomic(filepath.Join(metaDir, ReportFile), append(data, '\n'))
}

// ReadReport loads the last run report from metaDir. It returns nil without
// error when no run has completed yet.
func ReadReport(metaDir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(metaDir, ReportFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode run report: %w", err)
	}
	return &r, nil
}
