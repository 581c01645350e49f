package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Catalogue contains presentation settings for the published catalogue.
type Catalogue struct {
	BaseURL        string `toml:"base_url"`
	Title          string `toml:"title"`
	Description    string `toml:"description"`
	FeedWindowDays int    `toml:"feed_window_days"`
	SearchURL      string `toml:"search_url"`
	FilmSearchURL  string `toml:"film_search_url"`
	TVSearchURL    string `toml:"tv_search_url"`
}

// Source describes one author repository feeding the catalogue.
type Source struct {
	ID         string `toml:"id"`
	Kind       string `toml:"kind"`
	Path       string `toml:"path"`
	Label      string `toml:"label"`
	ThreadURL  string `toml:"thread_url"`
	TrackMtime bool   `toml:"track_mtime"`
}

// History contains configuration for the run/digest history database.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Workflow contains configuration for run execution.
type Workflow struct {
	Concurrency     int `toml:"concurrency"`
	StaleStageHours int `toml:"stale_stage_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for beqcat.
//
// Configuration sections by subsystem:
//   - Paths: published catalogue, provenance state and log directories
//   - Catalogue: base URL, feed channel metadata and search links
//   - Sources: author repositories, in publication order
//   - History: SQLite run and digest history
//   - Workflow: extraction concurrency and staging cleanup
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Catalogue Catalogue `toml:"catalogue"`
	Sources   []Source  `toml:"sources"`
	History   History   `toml:"history"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("beqcat.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SourceIDs returns configured source identifiers in publication order.
func (c *Config) SourceIDs() []string {
	ids := make([]string, 0, len(c.Sources))
	for _, src := range c.Sources {
		ids = append(ids, src.ID)
	}
	return ids
}

// DocsDir is the directory holding the published catalogue documents.
func (c *Config) DocsDir() string {
	return filepath.Join(c.Paths.OutputDir, "docs")
}

// MetaDir is the directory holding provenance tables, error lists and run reports.
func (c *Config) MetaDir() string {
	if c.Paths.StateDir != "" {
		return c.Paths.StateDir
	}
	return filepath.Join(c.Paths.OutputDir, "meta")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
