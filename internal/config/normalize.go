package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalogue()
	if err := c.normalizeSources(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("BEQCAT_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = value
	}
	if value, ok := os.LookupEnv("BEQCAT_STATE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.StateDir = value
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}

	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = filepath.Join(c.Paths.OutputDir, "meta")
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalogue() {
	if value, ok := os.LookupEnv("BEQCAT_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Catalogue.BaseURL = value
	}
	c.Catalogue.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalogue.BaseURL), "/")
	if c.Catalogue.BaseURL == "" {
		c.Catalogue.BaseURL = defaultBaseURL
	}
	c.Catalogue.Title = strings.TrimSpace(c.Catalogue.Title)
	if c.Catalogue.Title == "" {
		c.Catalogue.Title = defaultCatalogueTitle
	}
	c.Catalogue.Description = strings.TrimSpace(c.Catalogue.Description)
	if c.Catalogue.FeedWindowDays == 0 {
		c.Catalogue.FeedWindowDays = defaultFeedWindowDays
	}
	// search_url applies to both content types unless they are set individually.
	if shared := strings.TrimSpace(c.Catalogue.SearchURL); shared != "" {
		if strings.TrimSpace(c.Catalogue.FilmSearchURL) == "" || c.Catalogue.FilmSearchURL == defaultFilmSearchURL {
			c.Catalogue.FilmSearchURL = shared
		}
		if strings.TrimSpace(c.Catalogue.TVSearchURL) == "" || c.Catalogue.TVSearchURL == defaultTVSearchURL {
			c.Catalogue.TVSearchURL = shared
		}
	}
	if strings.TrimSpace(c.Catalogue.FilmSearchURL) == "" {
		c.Catalogue.FilmSearchURL = defaultFilmSearchURL
	}
	if strings.TrimSpace(c.Catalogue.TVSearchURL) == "" {
		c.Catalogue.TVSearchURL = defaultTVSearchURL
	}
}

func (c *Config) normalizeSources() error {
	for i := range c.Sources {
		src := &c.Sources[i]
		src.ID = strings.TrimSpace(src.ID)
		src.Kind = strings.ToLower(strings.TrimSpace(src.Kind))
		if src.Kind == "" {
			src.Kind = SourceKindXML
		}
		src.Label = strings.TrimSpace(src.Label)
		if src.Label == "" {
			src.Label = src.ID
		}
		src.ThreadURL = strings.TrimSpace(src.ThreadURL)
		var err error
		if src.Path, err = expandPath(strings.TrimSpace(src.Path)); err != nil {
			return fmt.Errorf("sources[%d].path: %w", i, err)
		}
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.StateDir, defaultHistoryFile)
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
