package materialize

import (
	"fmt"
	"path"
	"slices"
	"time"

	"beqcat/internal/catalogue"
	"beqcat/internal/retention"
)

// Docs-relative names of the catalogue-wide outputs.
const (
	CSVFile   = "catalogue.csv"
	JSONFile  = "catalogue.json"
	FeedFile  = "feed.xml"
	IndexFile = "index.md"
)

// SourceOutput is one configured source as seen by the renderer. A failed
// source has no titles; its previous output comes from Input.Retained.
type SourceOutput struct {
	ID     string
	Label  string
	Failed bool
	Titles []Title
}

// Input is everything one render needs.
type Input struct {
	Now        time.Time
	FeedWindow time.Duration
	Settings   Settings
	Sources    []SourceOutput
	Retained   retention.Retained
}

// Output is the fully rendered catalogue, held in memory until published.
type Output struct {
	CSV   []byte
	JSON  []byte
	Feed  []byte
	Pages map[string][]byte
	// Touched lists every page this run produced or deliberately kept,
	// docs-relative and sorted.
	Touched []string
	// Entries is the published JSON content: retained entries first, then
	// fresh ones in traversal order.
	Entries []catalogue.Entry
}

// Files returns every output file keyed by docs-relative path.
func (o Output) Files() map[string][]byte {
	files := make(map[string][]byte, len(o.Pages)+3)
	for p, data := range o.Pages {
		files[p] = data
	}
	files[CSVFile] = o.CSV
	files[JSONFile] = o.JSON
	files[FeedFile] = o.Feed
	return files
}

// Render produces the catalogue from fresh titles and retained state. It is
// pure: the same input always renders the same bytes.
func Render(in Input) (Output, error) {
	out := Output{Pages: make(map[string][]byte)}

	rows := make([]catalogue.Row, 0, len(in.Retained.Rows))
	for _, row := range in.Retained.Rows {
		rows = append(rows, slices.Clone(row))
	}
	out.Entries = append(out.Entries, in.Retained.Entries...)

	touched := make(map[string]struct{})
	for _, p := range in.Retained.Pages {
		touched[p] = struct{}{}
	}

	retainedCounts := countRetained(in.Retained)
	summaries := make([]sourceSummary, 0, len(in.Sources))
	for _, src := range in.Sources {
		label := src.Label
		if label == "" {
			label = src.ID
		}
		indexPage := path.Join(src.ID, IndexFile)
		touched[indexPage] = struct{}{}
		if src.Failed {
			counts := retainedCounts[src.ID]
			summaries = append(summaries, sourceSummary{id: src.ID, label: label, titles: counts.titles, entries: counts.entries, retained: true})
			continue
		}

		entryCount := 0
		for _, t := range src.Titles {
			out.Pages[t.Page] = renderTitlePage(label, t)
			touched[t.Page] = struct{}{}
			for _, e := range t.Entries {
				rows = append(rows, e.Row())
				out.Entries = append(out.Entries, e)
				entryCount++
			}
		}
		out.Pages[indexPage] = renderSourceIndex(label, src.Titles)
		summaries = append(summaries, sourceSummary{id: src.ID, label: label, titles: len(src.Titles), entries: entryCount})
	}
	out.Pages[IndexFile] = renderSiteIndex(in.Settings, summaries)
	touched[IndexFile] = struct{}{}

	var err error
	if out.CSV, err = catalogue.EncodeCSV(rows); err != nil {
		return Output{}, fmt.Errorf("encode catalogue csv: %w", err)
	}
	if out.JSON, err = catalogue.EncodeJSON(out.Entries); err != nil {
		return Output{}, fmt.Errorf("encode catalogue json: %w", err)
	}
	base := in.Settings.BaseURL
	out.Feed, err = Feed(out.Entries, in.Now, in.FeedWindow, Channel{
		Title:       in.Settings.Title,
		Link:        base + "/",
		Description: in.Settings.Description,
		SelfURL:     base + "/" + FeedFile,
	})
	if err != nil {
		return Output{}, fmt.Errorf("render feed: %w", err)
	}

	out.Touched = make([]string, 0, len(touched))
	for p := range touched {
		out.Touched = append(out.Touched, p)
	}
	slices.Sort(out.Touched)
	return out, nil
}

type counts struct {
	titles  int
	entries int
}

func countRetained(r retention.Retained) map[string]counts {
	out := make(map[string]counts)
	pages := make(map[string]map[string]struct{})
	for _, e := range r.Entries {
		c := out[e.Author]
		c.entries++
		if pages[e.Author] == nil {
			pages[e.Author] = make(map[string]struct{})
		}
		if e.Page != "" {
			pages[e.Author][e.Page] = struct{}{}
		}
		c.titles = len(pages[e.Author])
		out[e.Author] = c
	}
	return out
}
