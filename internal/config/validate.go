package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

var sourceIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCatalogue(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCatalogue() error {
	parsed, err := url.Parse(c.Catalogue.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("catalogue.base_url must be an absolute URL, got %q", c.Catalogue.BaseURL)
	}
	if c.Catalogue.FeedWindowDays < 0 {
		return errors.New("catalogue.feed_window_days must be positive")
	}
	return nil
}

func (c *Config) validateSources() error {
	seen := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d].id must be set", i)
		}
		if !sourceIDPattern.MatchString(src.ID) {
			return fmt.Errorf("sources[%d].id %q may only contain letters, digits, '.', '_' and '-'", i, src.ID)
		}
		if _, dup := seen[src.ID]; dup {
			return fmt.Errorf("sources[%d].id %q is declared more than once", i, src.ID)
		}
		seen[src.ID] = struct{}{}
		if src.Path == "" {
			return fmt.Errorf("sources[%d].path must be set", i)
		}
		switch src.Kind {
		case SourceKindXML:
		case SourceKindForum:
			if src.ThreadURL == "" {
				return fmt.Errorf("sources[%d].thread_url is required for forum sources", i)
			}
		default:
			return fmt.Errorf("sources[%d].kind %q is not supported (expected %q or %q)", i, src.Kind, SourceKindXML, SourceKindForum)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Concurrency < 0 {
		return errors.New("workflow.concurrency must be zero (unbounded) or positive")
	}
	if c.Workflow.StaleStageHours < 0 {
		return errors.New("workflow.stale_stage_hours must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
