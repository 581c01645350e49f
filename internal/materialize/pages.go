package materialize

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"beqcat/internal/catalogue"
	"beqcat/internal/record"
	"beqcat/internal/textutil"
)

type section struct {
	label   string
	entries []catalogue.Entry
}

func sectionsOf(t Title) []section {
	var out []section
	index := make(map[string]int)
	for _, e := range t.Entries {
		label := SectionLabel(t.ContentType, e)
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, section{label: label})
		}
		out[i].entries = append(out[i].entries, e)
	}
	return out
}

// renderTitlePage renders one canonical title. Every entry anchor is emitted
// once, ahead of the first section that uses it.
func renderTitlePage(sourceLabel string, t Title) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.PageTitle)
	if len(t.Entries) > 0 {
		first := t.Entries[0]
		if first.AltTitle != "" {
			fmt.Fprintf(&b, "*%s*\n\n", first.AltTitle)
		}
		if first.Overview != "" {
			fmt.Fprintf(&b, "%s\n\n", first.Overview)
		}
	}
	fmt.Fprintf(&b, "Author: %s\n\n", sourceLabel)

	emitted := make(map[string]struct{})
	for _, sec := range sectionsOf(t) {
		for _, e := range sec.entries {
			if _, done := emitted[e.Anchor]; done {
				continue
			}
			emitted[e.Anchor] = struct{}{}
			fmt.Fprintf(&b, "<a id=\"%s\"></a>\n", e.Anchor)
		}
		fmt.Fprintf(&b, "## %s\n\n", sec.label)
		for i, e := range sec.entries {
			if i > 0 {
				b.WriteString("---\n\n")
			}
			writeEntry(&b, t.ContentType, e)
		}
	}
	return []byte(b.String())
}

func writeEntry(b *strings.Builder, contentType record.ContentType, e catalogue.Entry) {
	bullet := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			fmt.Fprintf(b, "* **%s:** %s\n", label, value)
		}
	}
	if contentType == record.ContentTV {
		bullet("Format", FormatLabel(e.Format))
		if e.Complete {
			bullet("Episodes", "complete season")
		} else {
			bullet("Episodes", e.Episodes)
		}
	}
	bullet("Year", e.Year)
	bullet("Edition", e.Edition)
	bullet("Note", e.Note)
	bullet("Warning", e.Warning)
	bullet("MV", mvLabel(e.MV))
	bullet("Language", e.Language)
	bullet("Source", e.Source)
	bullet("Runtime", e.Runtime)
	bullet("Genres", strings.Join(e.Genres, ", "))
	if e.Filters.Display != "" {
		bullet("Filters", "`"+e.Filters.Display+"`")
	}

	var links []string
	if e.Links.Discussion != "" {
		links = append(links, fmt.Sprintf("[Discussion](%s)", e.Links.Discussion))
	}
	if e.Links.TMDB != "" {
		links = append(links, fmt.Sprintf("[TMDB](%s)", e.Links.TMDB))
	}
	if e.Links.Search != "" {
		links = append(links, fmt.Sprintf("[Search](%s)", e.Links.Search))
	}
	bullet("Links", strings.Join(links, " · "))
	b.WriteString("\n")

	for i, img := range e.Images {
		fmt.Fprintf(b, "![img %d](%s)\n\n", i, img)
	}
}

func mvLabel(mv string) string {
	if mv == "" || strings.HasPrefix(mv, "-") || mv == "0" {
		return mv
	}
	return "+" + mv
}

// renderSourceIndex lists a source's pages sorted case-insensitively by page
// title.
func renderSourceIndex(sourceLabel string, titles []Title) []byte {
	type link struct{ title, file string }
	links := make([]link, 0, len(titles))
	for _, t := range titles {
		links = append(links, link{title: t.PageTitle, file: path.Base(t.Page)})
	}
	slices.SortStableFunc(links, func(a, b link) int {
		return strings.Compare(textutil.Fold(a.title), textutil.Fold(b.title))
	})

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", sourceLabel)
	if len(links) == 0 {
		b.WriteString("No titles.\n")
		return []byte(b.String())
	}
	for _, l := range links {
		fmt.Fprintf(&b, "* [%s](%s)\n", l.title, l.file)
	}
	return []byte(b.String())
}

type sourceSummary struct {
	id       string
	label    string
	titles   int
	entries  int
	retained bool
}

func renderSiteIndex(s Settings, summaries []sourceSummary) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Title)
	if s.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", s.Description)
	}
	fmt.Fprintf(&b, "* [Catalogue (CSV)](%s)\n", CSVFile)
	fmt.Fprintf(&b, "* [Catalogue (JSON)](%s)\n", JSONFile)
	fmt.Fprintf(&b, "* [Recent changes (RSS)](%s)\n\n", FeedFile)
	b.WriteString("## Sources\n\n")
	b.WriteString("| Source | Titles | Entries | Status |\n")
	b.WriteString("|---|---:|---:|---|\n")
	for _, sum := range summaries {
		status := "current"
		if sum.retained {
			status = "retained from previous run"
		}
		fmt.Fprintf(&b, "| [%s](%s/index.md) | %d | %d | %s |\n", sum.label, sum.id, sum.titles, sum.entries, status)
	}
	return []byte(b.String())
}
