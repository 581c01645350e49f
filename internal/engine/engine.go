package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"beqcat/internal/catalogue"
	"beqcat/internal/config"
	"beqcat/internal/digest"
	"beqcat/internal/errreport"
	"beqcat/internal/filterdecode"
	"beqcat/internal/history"
	"beqcat/internal/logging"
	"beqcat/internal/materialize"
	"beqcat/internal/provenance"
	"beqcat/internal/retention"
	"beqcat/internal/services"
	"beqcat/internal/source"
	"beqcat/internal/source/forum"
	"beqcat/internal/source/xmlrepo"
	"beqcat/internal/staging"
)

// LockFile is created in the output directory while a run holds it.
const LockFile = ".beqcat.lock"

// ErrRunInProgress is returned when another run holds the output lock.
var ErrRunInProgress = errors.New("another beqcat run is already in progress")

// DefaultRegistry returns a registry with every built-in source kind.
func DefaultRegistry() *source.Registry {
	reg := source.NewRegistry()
	reg.Register(config.SourceKindXML, xmlrepo.New)
	reg.Register(config.SourceKindForum, forum.New)
	return reg
}

// Options configures an Engine.
type Options struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *source.Registry
	// Adapters replaces registry-built adapters when set.
	Adapters []source.Adapter
	Decoder  filterdecode.Decoder
	// Now fixes the run's reference time. Zero means the wall clock.
	Now time.Time
}

// Engine runs the catalogue pipeline once per Run call.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *source.Registry
	adapters []source.Adapter
	decoder  filterdecode.Decoder
	now      time.Time
}

// New validates options and returns an engine.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "new", "config is required", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	decoder := opts.Decoder
	if decoder == nil {
		decoder = filterdecode.Biquad{}
	}
	return &Engine{
		cfg:      opts.Config,
		logger:   logging.NewComponentLogger(logger, "engine"),
		registry: registry,
		adapters: opts.Adapters,
		decoder:  decoder,
		now:      opts.Now,
	}, nil
}

// runState is everything one run accumulates between stages.
type runState struct {
	id       string
	now      time.Time
	logger   *slog.Logger
	report   *Report
	results  []sourceResult
	tables   map[string]provenance.Table
	diffs    map[string][]provenance.DiffEntry
	errors   *errreport.Collector
	output   materialize.Output
	retained retention.Retained
}

// Run executes one full pass: extract every source, attach provenance,
// render, persist state, then publish. Per-source failures are reported and
// retained; only configuration, persist or publish failures return an error,
// in which case the previously published catalogue is left untouched.
//
// State is persisted before publish: provenance reconciliation is idempotent,
// so a run whose publish fails recomputes the same timestamps next time.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "prepare", "create directories", err)
	}

	lock := flock.New(filepath.Join(e.cfg.Paths.OutputDir, LockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			e.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	state := e.newRunState(ctx)
	ctx = services.WithRunID(ctx, state.id)
	logger := state.logger

	if e.cfg.Workflow.StaleStageHours > 0 {
		cleaned := staging.CleanStale(ctx, staging.Root(e.cfg.Paths.OutputDir), time.Duration(e.cfg.Workflow.StaleStageHours)*time.Hour, logger)
		if len(cleaned.Removed) > 0 {
			logger.Info("removed stale staging directories", logging.Int("count", len(cleaned.Removed)))
		}
	}

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.Int("sources", len(e.cfg.Sources)),
		logging.String("now", state.now.Format(time.RFC3339)),
	)

	adapters := e.adapters
	if adapters == nil {
		adapters, err = e.registry.Build(e.cfg.Sources, source.Deps{Decoder: e.decoder, Logger: e.logger})
		if err != nil {
			return e.fail(state, err)
		}
	}

	settings := e.settings()
	state.results = e.extractAll(ctx, adapters, settings, e.cfg.Workflow.Concurrency)

	if err := e.joinProvenance(state); err != nil {
		return e.fail(state, err)
	}
	e.detectCollisions(state)
	if err := e.retain(state); err != nil {
		return e.fail(state, err)
	}
	if err := e.render(state, settings); err != nil {
		return e.fail(state, err)
	}
	if err := e.persist(state); err != nil {
		return e.fail(state, err)
	}
	if err := e.publish(state); err != nil {
		return e.fail(state, err)
	}
	e.recordHistory(ctx, state)

	state.report.Status = history.StatusSucceeded
	if len(state.report.FailedSources()) > 0 {
		state.report.Status = history.StatusPartial
	}
	state.report.FinishedAt = time.Now().UTC()
	if err := writeReport(e.cfg.MetaDir(), state.report); err != nil {
		logging.WarnWithContext(logger, "run report not written", "report_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the state directory"),
			logging.String(logging.FieldImpact, "orphans command shows stale results"),
		)
	}

	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_finished"),
		logging.String("status", state.report.Status),
		logging.Int("entries", state.report.Entries),
		logging.Int("record_errors", state.report.RecordErrors()),
		logging.Int("orphans", len(state.report.Orphans)),
		logging.Int("collisions", len(state.report.Collisions)),
		logging.Duration("duration", state.report.FinishedAt.Sub(state.report.StartedAt)),
	)
	return state.report, nil
}

func (e *Engine) newRunState(ctx context.Context) *runState {
	now := e.now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	id := uuid.NewString()
	logger := e.logger.With(logging.String(logging.FieldRunID, id))
	return &runState{
		id:     id,
		now:    now,
		logger: logging.WithContext(ctx, logger),
		report: &Report{
			RunID:          id,
			Now:            now,
			StartedAt:      time.Now().UTC(),
			Orphans:        []string{},
			Collisions:     []CollisionReport{},
			ProvenanceGaps: []GapReport{},
		},
		tables: make(map[string]provenance.Table),
		diffs:  make(map[string][]provenance.DiffEntry),
		errors: errreport.NewCollector(),
	}
}

func (e *Engine) settings() materialize.Settings {
	c := e.cfg.Catalogue
	return materialize.Settings{
		BaseURL:       c.BaseURL,
		Title:         c.Title,
		Description:   c.Description,
		FilmSearchURL: c.FilmSearchURL,
		TVSearchURL:   c.TVSearchURL,
	}
}

func (e *Engine) feedWindow() time.Duration {
	if days := e.cfg.Catalogue.FeedWindowDays; days > 0 {
		return time.Duration(days) * 24 * time.Hour
	}
	return materialize.DefaultFeedWindow
}

// joinProvenance stamps timestamps on successful sources and fills the
// per-source report rows in configured order.
func (e *Engine) joinProvenance(state *runState) error {
	metaDir := e.cfg.MetaDir()
	for i := range state.results {
		res := &state.results[i]
		row := SourceReport{ID: res.id, Status: SourceOK, Records: res.records, DurationMS: res.duration.Milliseconds()}
		if res.failed() {
			row.Status = SourceFailed
			row.Error = res.err.Error()
			state.report.Sources = append(state.report.Sources, row)
			continue
		}
		table, diff, gaps, err := attachProvenance(state.logger, metaDir, res)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "provenance", res.id, "load provenance", err)
		}
		state.tables[res.id] = table
		state.diffs[res.id] = diff
		state.report.ProvenanceGaps = append(state.report.ProvenanceGaps, gaps...)

		state.errors.AddRecordErrors(res.errors)
		row.Titles = len(res.titles)
		for _, t := range res.titles {
			row.Entries += len(t.Entries)
		}
		row.RecordErrors = len(res.errors)
		state.report.Sources = append(state.report.Sources, row)
	}
	return nil
}

// detectCollisions walks every fresh entry in publication order. A digest
// held by N distinct owners is reported N-1 times, each against the first.
func (e *Engine) detectCollisions(state *runState) {
	detector := digest.NewDetector()
	for _, res := range state.results {
		if res.failed() {
			continue
		}
		for _, t := range res.titles {
			for _, entry := range t.Entries {
				c, collided := detector.Observe(entry.Digest, digest.Owner{Author: entry.Author, Title: entry.Title, Path: entry.SourcePath})
				if !collided {
					continue
				}
				logging.WarnWithContext(state.logger, "identity collision", "identity_collision",
					logging.Error(c.Err()),
					logging.String(logging.FieldErrorHint, "two different titles produced identical filters"),
					logging.String(logging.FieldImpact, "both entries are published"),
				)
				state.report.Collisions = append(state.report.Collisions, CollisionReport{
					Digest:      c.Digest,
					FirstAuthor: c.First.Author,
					FirstTitle:  c.First.Title,
					FirstPath:   c.First.Path,
					Author:      c.Second.Author,
					Title:       c.Second.Title,
					Path:        c.Second.Path,
				})
			}
		}
	}
}

func (e *Engine) retain(state *runState) error {
	var failed []string
	for _, res := range state.results {
		if res.failed() {
			failed = append(failed, res.id)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	docs := e.cfg.DocsDir()
	rows, err := catalogue.ReadCSV(filepath.Join(docs, materialize.CSVFile))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "retention", "read", "previous catalogue csv", err)
	}
	entries, err := catalogue.ReadJSON(filepath.Join(docs, materialize.JSONFile))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "retention", "read", "previous catalogue json", err)
	}
	state.retained = retention.Reconcile(failed, rows, entries)
	state.report.Retained = len(state.retained.Entries)
	state.logger.Info("retained previous output for failed sources",
		logging.String(logging.FieldEventType, "output_retained"),
		logging.Any("sources", failed),
		logging.Int("rows", len(state.retained.Rows)),
		logging.Int("entries", len(state.retained.Entries)),
	)
	return nil
}

func (e *Engine) render(state *runState, settings materialize.Settings) error {
	sources := make([]materialize.SourceOutput, 0, len(state.results))
	for i, res := range state.results {
		label := res.id
		if i < len(e.cfg.Sources) && e.cfg.Sources[i].ID == res.id {
			label = e.cfg.Sources[i].Label
		}
		sources = append(sources, materialize.SourceOutput{ID: res.id, Label: label, Failed: res.failed(), Titles: res.titles})
	}
	out, err := materialize.Render(materialize.Input{
		Now:        state.now,
		FeedWindow: e.feedWindow(),
		Settings:   settings,
		Sources:    sources,
		Retained:   state.retained,
	})
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "render", "catalogue", "render failed", err)
	}
	state.output = out
	state.report.Entries = len(out.Entries)
	state.report.FeedItems = len(materialize.FeedEntries(out.Entries, state.now, e.feedWindow()))

	ids := make([]string, 0, len(state.results))
	for _, res := range state.results {
		ids = append(ids, res.id)
	}
	orphans, err := materialize.Orphans(e.cfg.DocsDir(), ids, out.Touched)
	if err != nil {
		logging.WarnWithContext(state.logger, "orphan scan failed", "orphan_scan_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the docs directory"),
			logging.String(logging.FieldImpact, "orphaned pages are not reported"),
		)
		return nil
	}
	if orphans != nil {
		state.report.Orphans = orphans
	}
	if len(orphans) > 0 {
		logging.WarnWithContext(state.logger, "orphaned pages found", "orphans_found",
			logging.Int("count", len(orphans)),
			logging.String(logging.FieldErrorHint, "review with beqcat orphans and delete manually"),
			logging.String(logging.FieldImpact, "stale pages remain published"),
		)
	}
	return nil
}

func (e *Engine) publish(state *runState) error {
	stage, err := staging.New(e.cfg.Paths.OutputDir)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "publish", "stage", "output not writable", err)
	}
	if err := stage.Write(state.output.Files()); err != nil {
		_ = stage.Discard()
		return services.Wrap(services.ErrConfiguration, "publish", "stage", "write staged output", err)
	}
	published, err := stage.Publish(e.cfg.DocsDir())
	if err != nil {
		_ = stage.Discard()
		return services.Wrap(services.ErrConfiguration, "publish", "move", "publish staged output", err)
	}
	state.report.Published = len(published)
	state.logger.Info("catalogue published",
		logging.String(logging.FieldEventType, "catalogue_published"),
		logging.String(logging.FieldPath, e.cfg.DocsDir()),
		logging.Int("files", len(published)),
	)
	return nil
}

// persist writes provenance tables and error lists for successful sources.
// A failed source keeps its previous files. It runs before publish, so a
// persist failure never leaves a catalogue live that the stored tables do not
// describe.
func (e *Engine) persist(state *runState) error {
	metaDir := e.cfg.MetaDir()
	var ok []string
	for _, res := range state.results {
		if res.failed() {
			continue
		}
		ok = append(ok, res.id)
		if err := provenance.Persist(metaDir, res.id, state.tables[res.id], state.diffs[res.id]); err != nil {
			return services.Wrap(services.ErrConfiguration, "provenance", res.id, "persist provenance", err)
		}
	}
	if err := state.errors.Write(metaDir, ok); err != nil {
		return services.Wrap(services.ErrConfiguration, "errors", "write", "write error lists", err)
	}
	return nil
}

func (e *Engine) recordHistory(ctx context.Context, state *runState) {
	if !e.cfg.History.Enabled {
		return
	}
	warn := func(err error) {
		logging.WarnWithContext(state.logger, "history not recorded", "history_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the history database path"),
			logging.String(logging.FieldImpact, "run is missing from beqcat history"),
		)
	}
	store, err := history.Open(e.cfg)
	if err != nil {
		warn(err)
		return
	}
	defer store.Close()

	changes, err := store.Changes(ctx, state.output.Entries)
	if err != nil {
		warn(err)
		return
	}
	for _, c := range changes {
		state.report.Changes = append(state.report.Changes, ChangeReport{
			Kind: c.Kind, Author: c.Author, Path: c.Path, Title: c.Title, Digest: c.Digest, Previous: c.Previous,
		})
	}

	status := history.StatusSucceeded
	failed := state.report.FailedSources()
	if len(failed) > 0 {
		status = history.StatusPartial
	}
	run := history.Run{
		ID:            state.id,
		StartedAt:     state.report.StartedAt,
		FinishedAt:    time.Now().UTC(),
		Status:        status,
		Entries:       state.report.Entries,
		RecordErrors:  state.report.RecordErrors(),
		FailedSources: failed,
		Orphans:       len(state.report.Orphans),
		Collisions:    len(state.report.Collisions),
	}
	if err := store.RecordRun(ctx, run, state.output.Entries); err != nil {
		warn(err)
	}
}

// fail records a fatal run in the report and history and returns err.
func (e *Engine) fail(state *runState, err error) (*Report, error) {
	state.report.Status = history.StatusFailed
	state.report.FinishedAt = time.Now().UTC()
	logging.ErrorWithContext(state.logger, "run failed", "run_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "fix the reported problem and rerun"),
		logging.String(logging.FieldImpact, "previous catalogue left untouched"),
	)
	if e.cfg.History.Enabled {
		if store, openErr := history.Open(e.cfg); openErr == nil {
			_ = store.RecordRun(context.Background(), history.Run{
				ID:            state.id,
				StartedAt:     state.report.StartedAt,
				FinishedAt:    state.report.FinishedAt,
				Status:        history.StatusFailed,
				FailedSources: state.report.FailedSources(),
			}, nil)
			_ = store.Close()
		}
	}
	if writeErr := writeReport(e.cfg.MetaDir(), state.report); writeErr != nil {
		e.logger.Warn("run report not written", logging.Error(writeErr))
	}
	return state.report, err
}

// CheckSources builds every configured adapter and reports its health.
// Adapters without a health check are reported ready.
func (e *Engine) CheckSources(ctx context.Context) ([]source.Health, error) {
	adapters := e.adapters
	if adapters == nil {
		var err error
		adapters, err = e.registry.Build(e.cfg.Sources, source.Deps{Decoder: e.decoder, Logger: e.logger})
		if err != nil {
			return nil, err
		}
	}
	health := make([]source.Health, 0, len(adapters))
	for _, a := range adapters {
		if checker, ok := a.(source.HealthChecker); ok {
			health = append(health, checker.HealthCheck(ctx))
			continue
		}
		health = append(health, source.Healthy(a.ID()))
	}
	return health, nil
}
