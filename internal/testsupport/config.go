package testsupport

import (
	"path/filepath"
	"testing"

	"beqcat/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "site")
	cfgVal.Paths.StateDir = filepath.Join(base, "site", "meta")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Catalogue.BaseURL = "https://catalogue.test"
	cfgVal.History.Path = filepath.Join(cfgVal.Paths.StateDir, "history.db")
	cfgVal.Workflow.Concurrency = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithXMLSource adds an xml source whose checkout lives under the test base
// directory at repos/<id>. The directory is created.
func WithXMLSource(id string, trackMtime bool) ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "repos", id)
		MkdirAll(b.t, dir)
		b.cfg.Sources = append(b.cfg.Sources, config.Source{
			ID:         id,
			Kind:       config.SourceKindXML,
			Path:       dir,
			Label:      id,
			TrackMtime: trackMtime,
		})
	}
}

// WithSource appends a fully specified source.
func WithSource(src config.Source) ConfigOption {
	return func(b *configBuilder) {
		if src.Label == "" {
			src.Label = src.ID
		}
		b.cfg.Sources = append(b.cfg.Sources, src)
	}
}

// WithHistoryDisabled turns off the SQLite history.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}

// SourcePath returns the configured checkout path of source id.
func SourcePath(t testing.TB, cfg *config.Config, id string) string {
	t.Helper()
	for _, src := range cfg.Sources {
		if src.ID == id {
			return src.Path
		}
	}
	t.Fatalf("source %q not configured", id)
	return ""
}
