package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"beqcat/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "beqcat", "site")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Paths.StateDir != filepath.Join(wantOutput, "meta") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.MetaDir() != cfg.Paths.StateDir {
		t.Fatalf("MetaDir should follow state dir, got %q", cfg.MetaDir())
	}
	if cfg.History.Path != filepath.Join(cfg.Paths.StateDir, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.History.Path)
	}
	if cfg.Catalogue.FeedWindowDays != 14 {
		t.Fatalf("expected 14 day feed window, got %d", cfg.Catalogue.FeedWindowDays)
	}
	if len(cfg.Sources) != 0 {
		t.Fatalf("expected no sources by default, got %d", len(cfg.Sources))
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfgPath := filepath.Join(tempHome, "beqcat.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"output_dir": "~/site",
		},
		"catalogue": map[string]any{
			"base_url":         "https://example.test/catalogue/",
			"feed_window_days": 7,
		},
		"sources": []map[string]any{
			{"id": "aron7awol", "path": "~/repos/aron7awol"},
			{"id": "thread", "kind": "Forum", "path": "~/cache/thread", "thread_url": "https://forum.test/t/1"},
		},
		"logging": map[string]any{"format": "JSON", "level": "Debug"},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != cfgPath {
		t.Fatalf("expected config at %q, got %q (exists=%v)", cfgPath, resolved, exists)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "site") {
		t.Fatalf("unexpected output dir %q", cfg.Paths.OutputDir)
	}
	if cfg.Catalogue.BaseURL != "https://example.test/catalogue" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Catalogue.BaseURL)
	}
	if got := cfg.SourceIDs(); strings.Join(got, ",") != "aron7awol,thread" {
		t.Fatalf("unexpected source order %v", got)
	}
	if cfg.Sources[0].Kind != config.SourceKindXML || cfg.Sources[0].Label != "aron7awol" {
		t.Fatalf("unexpected source defaults %+v", cfg.Sources[0])
	}
	if cfg.Sources[1].Kind != config.SourceKindForum {
		t.Fatalf("expected forum kind, got %q", cfg.Sources[1].Kind)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging, got %+v", cfg.Logging)
	}
}

func TestEnvOverridesOutputDir(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("BEQCAT_OUTPUT_DIR", filepath.Join(tempHome, "env-site"))
	t.Setenv("BEQCAT_BASE_URL", "https://env.test")

	cfg, _, _, err := config.Load(filepath.Join(tempHome, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "env-site") {
		t.Fatalf("expected env output dir, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Catalogue.BaseURL != "https://env.test" {
		t.Fatalf("expected env base url, got %q", cfg.Catalogue.BaseURL)
	}
}

func TestValidateRejectsBadSources(t *testing.T) {
	tests := []struct {
		name    string
		sources []config.Source
		want    string
	}{
		{"missing id", []config.Source{{Kind: "xml", Path: "/x"}}, "id must be set"},
		{"bad id", []config.Source{{ID: "a/b", Kind: "xml", Path: "/x"}}, "may only contain"},
		{"duplicate", []config.Source{{ID: "a", Kind: "xml", Path: "/x"}, {ID: "a", Kind: "xml", Path: "/y"}}, "more than once"},
		{"missing path", []config.Source{{ID: "a", Kind: "xml"}}, "path must be set"},
		{"forum without thread", []config.Source{{ID: "a", Kind: "forum", Path: "/x"}}, "thread_url"},
		{"unknown kind", []config.Source{{ID: "a", Kind: "svn", Path: "/x"}}, "not supported"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Sources = tc.sources
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(tempHome, "conf", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("expected two sample sources, got %d", len(cfg.Sources))
	}
	if !cfg.Sources[1].TrackMtime {
		t.Fatal("expected second sample source to track mtimes")
	}
}
