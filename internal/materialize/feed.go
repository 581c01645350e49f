package materialize

import (
	"encoding/xml"
	"slices"
	"strings"
	"time"

	"beqcat/internal/catalogue"
	"beqcat/internal/record"
)

// DefaultFeedWindow is how far back the feed looks.
const DefaultFeedWindow = 14 * 24 * time.Hour

// Channel describes the feed itself.
type Channel struct {
	Title       string
	Link        string
	Description string
	SelfURL     string
}

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	AtomLink      atomLink  `xml:"atom:link"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description string  `xml:"description"`
	Category    string  `xml:"category,omitempty"`
	GUID        rssGUID `xml:"guid"`
	PubDate     string  `xml:"pubDate"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// FeedEntries selects the entries created or updated within [now-window, now],
// newest first by last change, keeping the first entry per digest. A
// non-positive window uses DefaultFeedWindow.
func FeedEntries(entries []catalogue.Entry, now time.Time, window time.Duration) []catalogue.Entry {
	if window <= 0 {
		window = DefaultFeedWindow
	}
	hi := now.Unix()
	lo := now.Add(-window).Unix()
	inWindow := func(ts int64) bool { return ts >= lo && ts <= hi }

	var fresh []catalogue.Entry
	for _, e := range entries {
		if inWindow(e.CreatedAt) || inWindow(e.UpdatedAt) {
			fresh = append(fresh, e)
		}
	}
	slices.SortStableFunc(fresh, func(a, b catalogue.Entry) int {
		switch la, lb := a.LastChange(), b.LastChange(); {
		case la > lb:
			return -1
		case la < lb:
			return 1
		}
		return 0
	})

	seen := make(map[string]struct{}, len(fresh))
	out := fresh[:0]
	for _, e := range fresh {
		if _, dup := seen[e.Digest]; dup {
			continue
		}
		seen[e.Digest] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Feed renders the RSS 2.0 document for entries changed within the window.
// The output depends only on its inputs, so identical runs produce identical
// bytes.
func Feed(entries []catalogue.Entry, now time.Time, window time.Duration, ch Channel) ([]byte, error) {
	items := FeedEntries(entries, now, window)
	doc := rssDoc{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:       ch.Title,
			Link:        ch.Link,
			Description: ch.Description,
			AtomLink:    atomLink{Href: ch.SelfURL, Rel: "self", Type: "application/rss+xml"},
		},
	}
	if len(items) > 0 {
		doc.Channel.LastBuildDate = rssTime(items[0].LastChange())
	}
	for _, e := range items {
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       itemTitle(e),
			Link:        e.Links.Catalogue,
			Description: itemDescription(e),
			Category:    e.Author,
			GUID:        rssGUID{IsPermaLink: "false", Value: e.Digest},
			PubDate:     rssTime(e.LastChange()),
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, len(xml.Header)+len(out)+1)
	data = append(data, xml.Header...)
	data = append(data, out...)
	return append(data, '\n'), nil
}

func itemTitle(e catalogue.Entry) string {
	parts := []string{e.Title}
	if e.Year != "" {
		parts = append(parts, "("+e.Year+")")
	}
	if e.ContentType == record.ContentTV && e.Season != "" {
		parts = append(parts, e.Season)
	}
	if e.Format != "" {
		parts = append(parts, e.Format)
	}
	return strings.Join(parts, " ")
}

func itemDescription(e catalogue.Entry) string {
	parts := []string{"Author: " + e.Author}
	if e.MV != "" {
		parts = append(parts, "MV: "+mvLabel(e.MV))
	}
	if e.Edition != "" {
		parts = append(parts, "Edition: "+e.Edition)
	}
	if e.Filters.Display != "" {
		parts = append(parts, "Filters: "+e.Filters.Display)
	}
	return strings.Join(parts, "; ")
}

func rssTime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC1123Z)
}
