package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"beqcat/internal/grouping"
	"beqcat/internal/logging"
	"beqcat/internal/materialize"
	"beqcat/internal/provenance"
	"beqcat/internal/record"
	"beqcat/internal/services"
	"beqcat/internal/source"
)

// sourceResult is everything one source produced before the join.
type sourceResult struct {
	id       string
	records  int
	titles   []materialize.Title
	errors   []record.RecordError
	observed []provenance.DiffEntry
	err      error
	duration time.Duration
}

func (r sourceResult) failed() bool { return r.err != nil }

// extractAll runs extraction, grouping and entry building for every adapter,
// at most limit at a time. Results are indexed by adapter order; one source
// failing never cancels the others.
func (e *Engine) extractAll(ctx context.Context, adapters []source.Adapter, settings materialize.Settings, limit int) []sourceResult {
	if limit <= 0 || limit > len(adapters) {
		limit = len(adapters)
	}
	results := make([]sourceResult, len(adapters))
	sem := make(chan struct{}, max(limit, 1))
	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, adapter source.Adapter) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = e.processSource(ctx, adapter, settings)
		}(i, adapter)
	}
	wg.Wait()
	return results
}

func (e *Engine) processSource(ctx context.Context, adapter source.Adapter, settings materialize.Settings) (res sourceResult) {
	start := time.Now()
	res.id = adapter.ID()
	ctx = services.WithSource(ctx, res.id)
	logger := logging.WithContext(services.WithStage(ctx, "extract"), e.logger)

	defer func() {
		if p := recover(); p != nil {
			res = sourceResult{id: res.id, err: services.Wrap(services.ErrSource, "build", res.id, fmt.Sprintf("panic: %v", p), nil)}
		}
		res.duration = time.Since(start)
		if res.err != nil {
			logging.ErrorWithContext(logger, "source failed", "source_failure",
				logging.Error(res.err),
				logging.String(logging.FieldErrorHint, "check the source checkout and configuration"),
				logging.String(logging.FieldImpact, "previous output for this source is retained"),
			)
		}
	}()

	ext, err := source.SafeExtract(ctx, adapter)
	if err != nil {
		res.err = err
		return res
	}
	res.records = len(ext.Records)
	res.observed = ext.Observed
	res.errors = append(res.errors, ext.Errors...)

	groups, groupErrs := grouping.New(res.id, e.logger).Group(ext.Records)
	res.errors = append(res.errors, groupErrs...)
	res.titles = materialize.BuildTitles(res.id, groups, settings)

	logger.Info("source extracted",
		logging.String(logging.FieldEventType, "source_extracted"),
		logging.Int("records", res.records),
		logging.Int("titles", len(res.titles)),
		logging.Int("record_errors", len(res.errors)),
	)
	return res
}

// attachProvenance reconciles the source's provenance table with its diff and
// stamps every entry with created/updated times. Entries without any
// provenance keep epoch times and are reported as gaps.
func attachProvenance(logger *slog.Logger, metaDir string, res *sourceResult) (provenance.Table, []provenance.DiffEntry, []GapReport, error) {
	existing, err := provenance.Load(metaDir, res.id)
	if err != nil {
		return nil, nil, nil, err
	}
	external, err := provenance.LoadDiff(metaDir, res.id)
	if err != nil {
		return nil, nil, nil, err
	}
	diff := provenance.MergeDiffs(external, res.observed)
	table := provenance.Reconcile(existing, diff)

	var gaps []GapReport
	gapSeen := make(map[string]struct{})
	for ti := range res.titles {
		entries := res.titles[ti].Entries
		for ei := range entries {
			times, ok := table.Lookup(entries[ei].SourcePath)
			if !ok {
				if _, dup := gapSeen[entries[ei].SourcePath]; !dup {
					gapSeen[entries[ei].SourcePath] = struct{}{}
					gaps = append(gaps, GapReport{Source: res.id, Path: entries[ei].SourcePath})
					gapErr := services.Wrap(services.ErrProvenanceGap, "provenance", res.id, "no timestamps recorded", nil)
					logging.WarnWithContext(logger, "provenance gap", "provenance_gap",
						logging.String(logging.FieldSource, res.id),
						logging.String(logging.FieldPath, entries[ei].SourcePath),
						logging.Error(gapErr),
						logging.String(logging.FieldErrorHint, "add the path to the source diff file"),
						logging.String(logging.FieldImpact, "entry published with epoch timestamps"),
					)
				}
				continue
			}
			entries[ei].CreatedAt = times.Created
			entries[ei].UpdatedAt = times.Updated
		}
	}
	return table, diff, gaps, nil
}
