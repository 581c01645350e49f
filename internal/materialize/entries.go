package materialize

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"beqcat/internal/catalogue"
	"beqcat/internal/digest"
	"beqcat/internal/grouping"
	"beqcat/internal/language"
	"beqcat/internal/record"
	"beqcat/internal/textutil"
)

const advancedOnlyMarker = "advanced users only"

// Title is one canonical title ready for rendering: its page and the
// catalogue entries that point at it.
type Title struct {
	Key         grouping.Key
	PageTitle   string
	ContentType record.ContentType
	// Page is the docs-relative page path, "<source>/<slug>.md".
	Page        string
	Multiformat bool
	Entries     []catalogue.Entry
}

// Settings carries the site-wide values entries and pages are built with.
type Settings struct {
	BaseURL       string
	Title         string
	Description   string
	FilmSearchURL string
	TVSearchURL   string
}

// BuildTitles turns one source's groups into titles with fully populated
// entries, digests included. Timestamps are attached later by the caller.
// Page slugs are unique within the source; a clash gets a numeric suffix.
func BuildTitles(sourceID string, groups []grouping.Group, s Settings) []Title {
	used := map[string]struct{}{"index": {}}
	titles := make([]Title, 0, len(groups))
	for _, g := range groups {
		if len(g.Records) == 0 {
			continue
		}
		first := g.Records[0]
		contentType := first.ContentType
		if contentType != record.ContentTV {
			contentType = record.ContentFilm
		}
		pageTitle := g.Title
		if contentType == record.ContentFilm && g.Key.Kind != grouping.KeyPageTitle {
			pageTitle = grouping.PageTitle(first)
		}

		slug := uniqueSlug(used, textutil.Slug(pageTitle))
		t := Title{
			Key:         g.Key,
			PageTitle:   pageTitle,
			ContentType: contentType,
			Page:        path.Join(sourceID, slug+".md"),
			Multiformat: isMultiformat(g.Records),
		}
		pageURL := strings.TrimRight(s.BaseURL, "/") + "/" + sourceID + "/" + slug + "/"
		for _, r := range g.Records {
			for _, format := range formats(r) {
				t.Entries = append(t.Entries, buildEntry(sourceID, r, format, t, pageURL, s))
			}
		}
		titles = append(titles, t)
	}
	return titles
}

func buildEntry(sourceID string, r record.RawRecord, format string, t Title, pageURL string, s Settings) catalogue.Entry {
	title := strings.TrimSpace(r.TitleText())
	e := catalogue.Entry{
		Title:       title,
		AltTitle:    r.AltTitle,
		SortTitle:   r.SortTitle,
		Year:        r.Year,
		ContentType: t.ContentType,
		Format:      format,
		AudioTypes:  r.AudioTypes,
		Author:      sourceID,
		Edition:     r.Edition,
		Note:        r.Note,
		Warning:     r.Warning,
		MV:          digest.MV(r.Gain),
		Language:    language.Normalize(r.Language),
		Source:      r.SourceLabel,
		Overview:    r.Overview,
		Runtime:     r.Runtime,
		Genres:      r.Genres,
		Episode:     r.Episode,
		Images:      r.Images,
		Page:        t.Page,
		SourcePath:  r.SourcePath,
	}
	if e.AudioTypes == nil {
		e.AudioTypes = []string{}
	}
	if e.Images == nil {
		e.Images = []string{}
	}
	if r.Filters != nil {
		e.Filters = *r.Filters
	}
	if r.Season != nil {
		e.Season = r.Season.Label()
		e.SeasonKey = r.Season.Key()
		e.Complete = r.Season.Complete
		if r.Season.Kind == record.SeasonStructured && !r.Season.Complete && len(r.Season.Episodes) > 0 {
			e.Episodes, _ = grouping.FormatEpisodes(r.Season.Episodes)
		}
	}

	e.Anchor = anchorFor(t, r, format)
	e.Links = catalogue.Links{
		Discussion: r.Ref(record.RefDiscussion),
		Catalogue:  pageURL + "#" + e.Anchor,
		Search:     searchURL(t.ContentType, title, s),
		TMDB:       tmdbURL(t.ContentType, r.Ref(record.RefTMDB)),
	}
	e.Digest = digest.Compute(identity(r, e))
	return e
}

func identity(r record.RawRecord, e catalogue.Entry) digest.Identity {
	id := digest.Identity{
		Title:   digest.Present(e.Title),
		MV:      digest.Optional(e.MV),
		Episode: digest.Optional(r.Episode),
	}
	if r.Filters != nil {
		id.Filters = digest.Present(r.Filters.Display)
	}
	if r.Season != nil {
		id.Season = digest.Present(r.Season.Key())
	}
	return id
}

// SectionLabel is the page subsection an entry renders under: the format for
// films and the season (plus episodes) for TV.
func SectionLabel(contentType record.ContentType, e catalogue.Entry) string {
	if contentType != record.ContentTV {
		return FormatLabel(e.Format)
	}
	label := e.Season
	if e.Episode != "" {
		episodes := grouping.EpisodeLabel(grouping.EpisodeNumbers(e.Episode))
		if label == "" {
			label = episodes
		} else {
			label += ", " + episodes
		}
	}
	if label == "" {
		label = "All episodes"
	}
	return label
}

// FormatLabel names an audio format, including the unknown one.
func FormatLabel(format string) string {
	if strings.TrimSpace(format) == "" {
		return "Unspecified format"
	}
	return format
}

func anchorFor(t Title, r record.RawRecord, format string) string {
	if t.ContentType != record.ContentTV {
		if t.Multiformat {
			return textutil.Slug(FormatLabel(format))
		}
		return textutil.Slug(t.PageTitle)
	}
	section := SectionLabel(record.ContentTV, catalogue.Entry{Season: seasonLabel(r), Episode: r.Episode})
	if t.Multiformat {
		return textutil.Slug(section + " " + FormatLabel(format))
	}
	return textutil.Slug(section)
}

func seasonLabel(r record.RawRecord) string {
	if r.Season == nil {
		return ""
	}
	return r.Season.Label()
}

func formats(r record.RawRecord) []string {
	if len(r.AudioTypes) == 0 {
		return []string{""}
	}
	return r.AudioTypes
}

// isMultiformat reports whether more than one format not flagged for
// advanced users only exists across the records of a title.
func isMultiformat(records []record.RawRecord) bool {
	seen := make(map[string]struct{})
	for _, r := range records {
		for _, f := range formats(r) {
			if advancedOnly(f) || advancedOnly(r.Warning) {
				continue
			}
			seen[f] = struct{}{}
		}
	}
	return len(seen) > 1
}

func advancedOnly(value string) bool {
	return strings.Contains(strings.ToLower(value), advancedOnlyMarker)
}

func uniqueSlug(used map[string]struct{}, slug string) string {
	candidate := slug
	for n := 2; ; n++ {
		if _, taken := used[candidate]; !taken {
			used[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", slug, n)
	}
}

func searchURL(contentType record.ContentType, title string, s Settings) string {
	base := s.FilmSearchURL
	if contentType == record.ContentTV {
		base = s.TVSearchURL
	}
	if base == "" {
		return ""
	}
	return base + url.QueryEscape(title)
}

func tmdbURL(contentType record.ContentType, id string) string {
	if id == "" {
		return ""
	}
	kind := "movie"
	if contentType == record.ContentTV {
		kind = "tv"
	}
	return "https://www.themoviedb.org/" + kind + "/" + url.PathEscape(id)
}
