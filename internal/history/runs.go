package history

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"beqcat/internal/catalogue"
)

// Run status values.
const (
	StatusSucceeded = "succeeded"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// Run summarizes one engine run.
type Run struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Status        string    `json:"status"`
	Entries       int       `json:"entries"`
	RecordErrors  int       `json:"record_errors"`
	FailedSources []string  `json:"failed_sources,omitempty"`
	Orphans       int       `json:"orphans"`
	Collisions    int       `json:"collisions"`
}

// ChangeKind classifies how an entry's identity differs from history.
type ChangeKind string

const (
	// ChangeNew is a (author, path) never published before.
	ChangeNew ChangeKind = "new"
	// ChangeModified is a known (author, path) whose digest changed.
	ChangeModified ChangeKind = "modified"
)

// Change is one cross-run identity difference.
type Change struct {
	Kind     ChangeKind
	Author   string
	Path     string
	Title    string
	Digest   string
	Previous string
}

// RecordRun stores the run summary and upserts every published digest.
func (s *Store) RecordRun(ctx context.Context, run Run, entries []catalogue.Entry) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin run tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx, `INSERT INTO runs
			(id, started_at, finished_at, status, entries, record_errors, failed_sources, orphans, collisions)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.StartedAt.Unix(), run.FinishedAt.Unix(), run.Status, run.Entries,
			run.RecordErrors, strings.Join(run.FailedSources, ","), run.Orphans, run.Collisions,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO digests
			(digest, author, source_path, title, first_run, last_run, first_seen, last_seen)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (digest, author, source_path) DO UPDATE SET
				title = excluded.title,
				last_run = excluded.last_run,
				last_seen = excluded.last_seen`)
		if err != nil {
			return fmt.Errorf("prepare digest upsert: %w", err)
		}
		defer stmt.Close()

		seen := run.FinishedAt.Unix()
		for _, e := range entries {
			if e.Digest == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, e.Digest, e.Author, e.SourcePath, e.Title, run.ID, run.ID, seen, seen); err != nil {
				return fmt.Errorf("upsert digest %s: %w", e.Digest, err)
			}
		}
		return tx.Commit()
	})
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT id, started_at, finished_at, status, entries, record_errors, failed_sources, orphans, collisions
		FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run              Run
			started, stopped int64
			failed           string
		)
		if err := rows.Scan(&run.ID, &started, &stopped, &run.Status, &run.Entries, &run.RecordErrors, &failed, &run.Orphans, &run.Collisions); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = time.Unix(started, 0).UTC()
		run.FinishedAt = time.Unix(stopped, 0).UTC()
		if failed != "" {
			run.FailedSources = strings.Split(failed, ",")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Changes compares entries against the latest digest recorded for each
// (author, path) and returns the differences, sorted by author then path.
// Entries repeated per audio format are reported once.
func (s *Store) Changes(ctx context.Context, entries []catalogue.Entry) ([]Change, error) {
	ctx = ensureContext(ctx)
	latest, err := s.latestDigests(ctx)
	if err != nil {
		return nil, err
	}

	var changes []Change
	reported := make(map[string]struct{})
	for _, e := range entries {
		if e.Digest == "" {
			continue
		}
		key := e.Author + "\x00" + e.SourcePath
		if _, done := reported[key]; done {
			continue
		}
		prev, known := latest[key]
		switch {
		case !known:
			changes = append(changes, Change{Kind: ChangeNew, Author: e.Author, Path: e.SourcePath, Title: e.Title, Digest: e.Digest})
		case prev != e.Digest:
			changes = append(changes, Change{Kind: ChangeModified, Author: e.Author, Path: e.SourcePath, Title: e.Title, Digest: e.Digest, Previous: prev})
		default:
			continue
		}
		reported[key] = struct{}{}
	}
	slices.SortStableFunc(changes, func(a, b Change) int {
		if c := strings.Compare(a.Author, b.Author); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
	return changes, nil
}

func (s *Store) latestDigests(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT author, source_path, digest, last_seen FROM digests ORDER BY last_seen ASC, digest ASC`)
	if err != nil {
		return nil, fmt.Errorf("query digests: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]string)
	for rows.Next() {
		var (
			author, path, digest string
			lastSeen             sql.NullInt64
		)
		if err := rows.Scan(&author, &path, &digest, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan digest: %w", err)
		}
		latest[author+"\x00"+path] = digest
	}
	return latest, rows.Err()
}
