package materialize

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"beqcat/internal/catalogue"
	"beqcat/internal/grouping"
	"beqcat/internal/logging"
	"beqcat/internal/record"
	"beqcat/internal/retention"
)

var settings = Settings{
	BaseURL:       "https://cat.example",
	Title:         "BEQ Catalogue",
	Description:   "Recent filters",
	FilmSearchURL: "https://search.example/movie?query=",
	TVSearchURL:   "https://search.example/tv?query=",
}

func film(path, title, year string, audio ...string) record.RawRecord {
	return record.RawRecord{
		SourcePath:  path,
		ContentType: record.ContentFilm,
		Title:       record.StringPtr(title),
		Year:        year,
		AudioTypes:  audio,
		Gain:        "-2.0",
		Filters:     &record.Filters{Display: "f1"},
	}
}

func titlesFor(t *testing.T, sourceID string, records ...record.RawRecord) []Title {
	t.Helper()
	groups, errs := grouping.New(sourceID, logging.NewNop()).Group(records)
	if len(errs) != 0 {
		t.Fatalf("unexpected grouping errors %v", errs)
	}
	return BuildTitles(sourceID, groups, settings)
}

func TestBuildTitlesSingleFormatAnchorsToPage(t *testing.T) {
	titles := titlesFor(t, "a", film("alpha.xml", "Alpha", "2020", "DTS-HD MA 5.1"))
	if len(titles) != 1 {
		t.Fatalf("expected one title, got %d", len(titles))
	}
	e := titles[0].Entries[0]
	if titles[0].Page != "a/alpha-2020.md" || titles[0].Multiformat {
		t.Fatalf("unexpected title %+v", titles[0])
	}
	if e.Anchor != "alpha-2020" {
		t.Fatalf("unexpected anchor %q", e.Anchor)
	}
	if e.Links.Catalogue != "https://cat.example/a/alpha-2020/#alpha-2020" {
		t.Fatalf("unexpected catalogue url %q", e.Links.Catalogue)
	}
	if e.Links.Search != "https://search.example/movie?query=Alpha" {
		t.Fatalf("unexpected search url %q", e.Links.Search)
	}
	if e.MV != "-2" || len(e.Digest) != 64 {
		t.Fatalf("unexpected mv/digest %q %q", e.MV, e.Digest)
	}
}

func episodeRecord() record.RawRecord {
	return record.RawRecord{
		SourcePath:   "show/s1e1.xml",
		ContentType:  record.ContentTV,
		Title:        record.StringPtr("Show"),
		Year:         "2019",
		AudioTypes:   []string{"DTS-HD MA 5.1"},
		Gain:         "-1.5",
		Season:       record.StructuredSeason("s1", 1, 8, []int{1}),
		Episode:      "1",
		Images:       []string{"https://img.example/1.png"},
		ExternalRefs: map[string]string{record.RefDiscussion: "https://forum.example/post-1", record.RefTMDB: "42"},
		Filters:      &record.Filters{Display: "PK 20Hz Q1 -2.5dB"},
	}
}

func entryDigest(t *testing.T, sourceID string, r record.RawRecord, s Settings) string {
	t.Helper()
	group := grouping.Group{Key: grouping.Key{Kind: grouping.KeyTitle, Name: "show"}, Title: r.TitleText(), Records: []record.RawRecord{r}}
	titles := BuildTitles(sourceID, []grouping.Group{group}, s)
	if len(titles) != 1 || len(titles[0].Entries) == 0 {
		t.Fatalf("expected one title with entries, got %+v", titles)
	}
	return titles[0].Entries[0].Digest
}

func TestEntryDigestTracksIdentityFieldsOnly(t *testing.T) {
	base := entryDigest(t, "a", episodeRecord(), settings)

	tests := []struct {
		name     string
		sourceID string
		mutate   func(*record.RawRecord)
		settings func(*Settings)
		changes  bool
	}{
		{name: "year", mutate: func(r *record.RawRecord) { r.Year = "2020" }},
		{name: "images", mutate: func(r *record.RawRecord) { r.Images = []string{"https://img.example/2.png", "https://img.example/3.png"} }},
		{name: "audio format", mutate: func(r *record.RawRecord) { r.AudioTypes = []string{"TrueHD 7.1 Atmos"} }},
		{name: "author", sourceID: "b"},
		{name: "external links", mutate: func(r *record.RawRecord) {
			r.ExternalRefs = map[string]string{record.RefDiscussion: "https://forum.example/post-9", record.RefTMDB: "7"}
		}},
		{name: "site urls", settings: func(s *Settings) { s.BaseURL = "https://mirror.example"; s.TVSearchURL = "" }},
		{name: "source path", mutate: func(r *record.RawRecord) { r.SourcePath = "renamed/s1e1.xml" }},
		{name: "title", mutate: func(r *record.RawRecord) { r.Title = record.StringPtr("Other Show") }, changes: true},
		{name: "filters", mutate: func(r *record.RawRecord) { r.Filters = &record.Filters{Display: "LS 30Hz Q0.7 +3dB"} }, changes: true},
		{name: "gain", mutate: func(r *record.RawRecord) { r.Gain = "-3" }, changes: true},
		{name: "season", mutate: func(r *record.RawRecord) { r.Season = record.StructuredSeason("s2", 2, 8, []int{1}) }, changes: true},
		{name: "episode", mutate: func(r *record.RawRecord) { r.Episode = "2" }, changes: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := episodeRecord()
			if tc.mutate != nil {
				tc.mutate(&r)
			}
			s := settings
			if tc.settings != nil {
				tc.settings(&s)
			}
			sourceID := tc.sourceID
			if sourceID == "" {
				sourceID = "a"
			}
			got := entryDigest(t, sourceID, r, s)
			if changed := got != base; changed != tc.changes {
				t.Fatalf("digest changed=%v, want %v", changed, tc.changes)
			}
		})
	}
}

func TestBuildTitlesMultiformatUsesFormatAnchors(t *testing.T) {
	titles := titlesFor(t, "a",
		film("a1.xml", "Alpha", "2020", "DTS-HD MA 5.1"),
		film("a2.xml", "Alpha", "2020", "Atmos"),
	)
	if len(titles) != 1 || !titles[0].Multiformat {
		t.Fatalf("expected one multiformat title, got %+v", titles)
	}
	got := []string{titles[0].Entries[0].Anchor, titles[0].Entries[1].Anchor}
	want := []string{"dts-hd-ma-5-1", "atmos"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got anchors %v want %v", got, want)
	}
	page := string(renderTitlePage("a", titles[0]))
	for _, anchor := range want {
		if !strings.Contains(page, `<a id="`+anchor+`"></a>`) {
			t.Fatalf("page missing anchor %s:\n%s", anchor, page)
		}
	}
}

func TestBuildTitlesAdvancedOnlyFormatDoesNotCountAsMultiformat(t *testing.T) {
	advanced := film("a2.xml", "Alpha", "2020", "Atmos")
	advanced.Warning = "For advanced users only"
	titles := titlesFor(t, "a", film("a1.xml", "Alpha", "2020", "DTS-HD MA 5.1"), advanced)
	if titles[0].Multiformat {
		t.Fatal("advanced-only format should not make the title multiformat")
	}
	for _, e := range titles[0].Entries {
		if e.Anchor != "alpha-2020" {
			t.Fatalf("unexpected anchor %q", e.Anchor)
		}
	}
}

func TestBuildTitlesSlugClashGetsSuffix(t *testing.T) {
	titles := titlesFor(t, "a",
		film("x.xml", "Index", ""),
		film("y.xml", "Beta!", "1999"),
		film("z.xml", "Beta?", "1999"),
	)
	var pages []string
	for _, ti := range titles {
		pages = append(pages, ti.Page)
	}
	want := []string{"a/index-2.md", "a/beta-1999.md", "a/beta-1999-2.md"}
	if !reflect.DeepEqual(pages, want) {
		t.Fatalf("got %v want %v", pages, want)
	}
}

func TestBuildTitlesTVSections(t *testing.T) {
	show := record.RawRecord{
		SourcePath:  "show.xml",
		ContentType: record.ContentTV,
		Title:       record.StringPtr("Show"),
		Season:      record.StructuredSeason("1", 2, 8, []int{1, 2, 3, 5}),
		AudioTypes:  []string{"DD+ Atmos"},
	}
	titles := titlesFor(t, "a", show)
	e := titles[0].Entries[0]
	if e.Season != "Season 2" || e.Episodes != "1-3, 5" || e.Complete {
		t.Fatalf("unexpected season fields %+v", e)
	}
	if e.Anchor != "season-2" {
		t.Fatalf("unexpected anchor %q", e.Anchor)
	}
	if !strings.HasPrefix(e.Links.Search, settings.TVSearchURL) {
		t.Fatalf("expected tv search url, got %q", e.Links.Search)
	}
}

func entryAt(digest string, created, updated int64) catalogue.Entry {
	return catalogue.Entry{Title: digest, Author: "a", Digest: digest, CreatedAt: created, UpdatedAt: updated}
}

func TestFeedEntriesFreshnessWindow(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	day := int64(24 * 60 * 60)
	entries := []catalogue.Entry{
		entryAt("d13", now.Unix()-13*day, now.Unix()-13*day),
		entryAt("d15", now.Unix()-15*day, now.Unix()-15*day),
		entryAt("d20", now.Unix()-20*day, now.Unix()-20*day),
		entryAt("d2", 0, now.Unix()-2*day),
		entryAt("d13", now.Unix()-13*day, now.Unix()-13*day),
	}
	got := FeedEntries(entries, now, 0)
	var digests []string
	for _, e := range got {
		digests = append(digests, e.Digest)
	}
	if !reflect.DeepEqual(digests, []string{"d2", "d13"}) {
		t.Fatalf("got %v", digests)
	}
}

func TestFeedDocument(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	e := entryAt("abc", now.Unix()-60, now.Unix()-60)
	e.Links.Catalogue = "https://cat.example/a/x/#x"
	data, err := Feed([]catalogue.Entry{e}, now, 0, Channel{Title: "T", Link: "https://cat.example/", SelfURL: "https://cat.example/feed.xml"})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	for _, want := range []string{
		`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`,
		`<atom:link href="https://cat.example/feed.xml" rel="self" type="application/rss+xml">`,
		`<guid isPermaLink="false">abc</guid>`,
	} {
		if !bytes.Contains(data, []byte(want)) {
			t.Fatalf("feed missing %q:\n%s", want, data)
		}
	}
	var parsed struct {
		Items []struct {
			GUID string `xml:"guid"`
		} `xml:"channel>item"`
	}
	if err := xml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("feed is not valid xml: %v", err)
	}
	if len(parsed.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(parsed.Items))
	}
}

func TestRenderPlacesRetainedFirstAndIsDeterministic(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	fresh := titlesFor(t, "b", film("b.xml", "Beta", "1999", "AC3"))
	prior := catalogue.Entry{Title: "Old", Author: "a", Page: "a/old.md", Digest: "old"}
	in := Input{
		Now:      now,
		Settings: settings,
		Sources: []SourceOutput{
			{ID: "a", Failed: true},
			{ID: "b", Label: "Bee", Titles: fresh},
		},
		Retained: retention.Retained{
			Rows:    []catalogue.Row{{"Old", "", "", "a", "", "", "", ""}},
			Entries: []catalogue.Entry{prior},
			Pages:   []string{"a/old.md"},
		},
	}
	out, err := Render(in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(out.Entries) != 2 || out.Entries[0].Title != "Old" || out.Entries[1].Title != "Beta" {
		t.Fatalf("unexpected entry order %+v", out.Entries)
	}
	lines := strings.Split(strings.TrimSpace(string(out.CSV)), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "Old,") || !strings.HasPrefix(lines[2], "Beta,") {
		t.Fatalf("unexpected csv:\n%s", out.CSV)
	}
	if _, ok := out.Pages["a/index.md"]; ok {
		t.Fatal("failed source index must not be re-rendered")
	}
	wantTouched := []string{"a/index.md", "a/old.md", "b/beta-1999.md", "b/index.md", "index.md"}
	if !reflect.DeepEqual(out.Touched, wantTouched) {
		t.Fatalf("got touched %v want %v", out.Touched, wantTouched)
	}
	if !strings.Contains(string(out.Pages["index.md"]), "retained from previous run") {
		t.Fatalf("site index should mark retained source:\n%s", out.Pages["index.md"])
	}

	again, err := Render(in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !reflect.DeepEqual(out, again) {
		t.Fatal("render is not deterministic")
	}
	if len(out.Files()) != len(out.Pages)+3 {
		t.Fatalf("unexpected file count %d", len(out.Files()))
	}
}

func TestOrphans(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"a/index.md", "a/kept.md", "a/stale.md", "a/sub/deep.md", "a/notes.txt", "other/x.md"} {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := Orphans(root, []string{"a", "missing"}, []string{"a/index.md", "a/kept.md"})
	if err != nil {
		t.Fatalf("Orphans: %v", err)
	}
	want := []string{"a/stale.md", "a/sub/deep.md"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if _, err := os.Stat(filepath.Join(root, "a", "stale.md")); err != nil {
		t.Fatal("orphans must not be deleted")
	}
}
