package record

import (
	"path"
	"strings"
)

// ContentType distinguishes films from television records.
type ContentType string

const (
	ContentFilm ContentType = "film"
	ContentTV   ContentType = "tv"
)

// External reference keys carried in RawRecord.ExternalRefs.
const (
	RefDiscussion = "avs"
	RefTMDB       = "tmdb"
)

// Filters holds the decoded filter payload of a record. Display is the opaque,
// hashable rendering used for identity; Structured is informational only.
type Filters struct {
	Display    string              `json:"display"`
	Structured []map[string]string `json:"structured,omitempty"`
}

// RawRecord is one metadata record as emitted by a source adapter. It is
// treated as immutable once extracted.
type RawRecord struct {
	SourcePath   string
	FileName     string
	ContentType  ContentType
	Title        *string
	AltTitle     string
	SortTitle    string
	Year         string
	Edition      string
	Note         string
	Warning      string
	Gain         string
	Language     string
	SourceLabel  string
	Overview     string
	Runtime      string
	ExternalRefs map[string]string
	AudioTypes   []string
	Genres       []string
	Season       *Season
	Episode      string
	Images       []string
	Filters      *Filters
}

// TitleText returns the record title or "" when absent.
func (r RawRecord) TitleText() string {
	if r.Title == nil {
		return ""
	}
	return *r.Title
}

// HasTitle reports whether the record carries a non-blank title.
func (r RawRecord) HasTitle() bool {
	return r.Title != nil && strings.TrimSpace(*r.Title) != ""
}

// BaseName returns the name used for fallback title parsing: FileName when
// set, otherwise the SourcePath basename without its extension.
func (r RawRecord) BaseName() string {
	if r.FileName != "" {
		return r.FileName
	}
	base := path.Base(strings.ReplaceAll(r.SourcePath, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// Ref returns an external reference value or "".
func (r RawRecord) Ref(key string) string {
	if r.ExternalRefs == nil {
		return ""
	}
	return strings.TrimSpace(r.ExternalRefs[key])
}

// StringPtr is a convenience for building records with a title.
func StringPtr(s string) *string {
	return &s
}
