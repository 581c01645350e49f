package source

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"

	"beqcat/internal/config"
	"beqcat/internal/filterdecode"
	"beqcat/internal/provenance"
	"beqcat/internal/record"
	"beqcat/internal/services"
)

// Adapter is the contract the engine needs from each author repository.
// Extract returning an error (or panicking) is a total failure of the source;
// per-record problems belong in Extraction.Errors.
type Adapter interface {
	ID() string
	Extract(context.Context) (Extraction, error)
}

// HealthChecker is implemented by adapters that can report readiness without
// a full extraction.
type HealthChecker interface {
	HealthCheck(context.Context) Health
}

// Extraction is the output of one adapter run.
type Extraction struct {
	Records []record.RawRecord
	Errors  []record.RecordError
	// Observed carries per-path modification timestamps seen during the walk.
	// It is merged with the external diff file before provenance reconcile.
	Observed []provenance.DiffEntry
}

// Deps are the shared collaborators handed to adapter factories.
type Deps struct {
	Decoder filterdecode.Decoder
	Logger  *slog.Logger
}

// Factory builds an adapter for one configured source.
type Factory func(config.Source, Deps) (Adapter, error)

// Registry maps source kinds to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register installs factory for kind, replacing any previous one.
func (r *Registry) Register(kind string, factory Factory) {
	r.factories[strings.ToLower(strings.TrimSpace(kind))] = factory
}

// Kinds lists registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Build creates one adapter per configured source, in configuration order.
func (r *Registry) Build(sources []config.Source, deps Deps) ([]Adapter, error) {
	if deps.Decoder == nil {
		deps.Decoder = filterdecode.Biquad{}
	}
	adapters := make([]Adapter, 0, len(sources))
	for _, src := range sources {
		factory, ok := r.factories[strings.ToLower(src.Kind)]
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, "source", "build adapter",
				fmt.Sprintf("source %q has unsupported kind %q (known: %s)", src.ID, src.Kind, strings.Join(r.Kinds(), ", ")), nil)
		}
		adapter, err := factory(src, deps)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "source", "build adapter",
				fmt.Sprintf("source %q", src.ID), err)
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}

// SafeExtract runs the adapter, converting a panic into a source failure and
// tagging any error with ErrSource.
func SafeExtract(ctx context.Context, adapter Adapter) (ext Extraction, err error) {
	defer func() {
		if p := recover(); p != nil {
			ext = Extraction{}
			err = services.Wrap(services.ErrSource, "extract", adapter.ID(),
				fmt.Sprintf("adapter panicked: %v", p), fmt.Errorf("%s", debug.Stack()))
		}
	}()
	ext, err = adapter.Extract(ctx)
	if err != nil {
		return Extraction{}, services.Wrap(services.ErrSource, "extract", adapter.ID(), "extraction failed", err)
	}
	for i := range ext.Errors {
		if ext.Errors[i].SourceID == "" {
			ext.Errors[i].SourceID = adapter.ID()
		}
	}
	return ext, nil
}
