package catalogue

import "beqcat/internal/record"

// Header is the fixed leading header of the catalogue CSV; image URLs follow
// as extra, unnamed columns.
var Header = []string{"Title", "Year", "Format", "Author", "DiscussionLink", "CatalogueURL", "ExternalSearchURL", "Filters"}

// Column indexes into a catalogue CSV row.
const (
	ColTitle = iota
	ColYear
	ColFormat
	ColAuthor
	ColDiscussion
	ColCatalogue
	ColSearch
	ColFilters
)

// Row is one catalogue CSV row as written or read, images included.
type Row []string

// Author returns the source that produced the row.
func (r Row) Author() string {
	if len(r) <= ColAuthor {
		return ""
	}
	return r[ColAuthor]
}

// Links groups the URLs attached to an entry.
type Links struct {
	Discussion string `json:"discussion,omitempty"`
	Catalogue  string `json:"catalogue"`
	Search     string `json:"search"`
	TMDB       string `json:"tmdb,omitempty"`
}

// Entry is one published catalogue row: a (title, format) for films or a
// (title, season, format) for TV.
type Entry struct {
	Title       string             `json:"title"`
	AltTitle    string             `json:"altTitle,omitempty"`
	SortTitle   string             `json:"sortTitle,omitempty"`
	Year        string             `json:"year,omitempty"`
	ContentType record.ContentType `json:"content_type"`
	Format      string             `json:"format"`
	AudioTypes  []string           `json:"audioTypes"`
	Author      string             `json:"author"`
	Edition     string             `json:"edition,omitempty"`
	Note        string             `json:"note,omitempty"`
	Warning     string             `json:"warning,omitempty"`
	MV          string             `json:"mv,omitempty"`
	Language    string             `json:"language,omitempty"`
	Source      string             `json:"source,omitempty"`
	Overview    string             `json:"overview,omitempty"`
	Runtime     string             `json:"runtime,omitempty"`
	Genres      []string           `json:"genres,omitempty"`
	Season      string             `json:"season,omitempty"`
	SeasonKey   string             `json:"season_key,omitempty"`
	Complete    bool               `json:"complete,omitempty"`
	Episodes    string             `json:"episodes,omitempty"`
	Episode     string             `json:"episode,omitempty"`
	Filters     record.Filters     `json:"filters"`
	Images      []string           `json:"images"`
	Links       Links              `json:"links"`
	Page        string             `json:"page"`
	Anchor      string             `json:"anchor"`
	SourcePath  string             `json:"source_path"`
	CreatedAt   int64              `json:"created_at"`
	UpdatedAt   int64              `json:"updated_at"`
	Digest      string             `json:"digest"`
}

// Row renders the entry as a catalogue CSV row.
func (e Entry) Row() Row {
	row := make(Row, 0, len(Header)+len(e.Images))
	row = append(row,
		e.Title,
		e.Year,
		e.Format,
		e.Author,
		e.Links.Discussion,
		e.Links.Catalogue,
		e.Links.Search,
		e.Filters.Display,
	)
	return append(row, e.Images...)
}

// LastChange is the later of the entry's created and updated times.
func (e Entry) LastChange() int64 {
	return max(e.CreatedAt, e.UpdatedAt)
}
