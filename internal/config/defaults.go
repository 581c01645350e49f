package config

const (
	defaultConfigPath      = "~/.config/beqcat/config.toml"
	defaultOutputDir       = "~/.local/share/beqcat/site"
	defaultLogDir          = "~/.local/share/beqcat/logs"
	defaultBaseURL         = "https://beqcatalogue.readthedocs.io/en/latest"
	defaultCatalogueTitle  = "BEQ Catalogue"
	defaultDescription     = "Recently added or updated bass EQ filters"
	defaultFeedWindowDays  = 14
	defaultFilmSearchURL   = "https://www.themoviedb.org/search/movie?query="
	defaultTVSearchURL     = "https://www.themoviedb.org/search/tv?query="
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultConcurrency     = 4
	defaultStaleStageHours = 24
	defaultHistoryFile     = "history.db"

	// SourceKindXML reads a local checkout of an author repository of BEQ XML files.
	SourceKindXML = "xml"
	// SourceKindForum reads cached pages of a forum discussion thread.
	SourceKindForum = "forum"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Catalogue: Catalogue{
			BaseURL:        defaultBaseURL,
			Title:          defaultCatalogueTitle,
			Description:    defaultDescription,
			FeedWindowDays: defaultFeedWindowDays,
			FilmSearchURL:  defaultFilmSearchURL,
			TVSearchURL:    defaultTVSearchURL,
		},
		History: History{
			Enabled: true,
		},
		Workflow: Workflow{
			Concurrency:     defaultConcurrency,
			StaleStageHours: defaultStaleStageHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
