package xmlrepo

import (
	"encoding/xml"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"beqcat/internal/filterdecode"
	"beqcat/internal/record"
)

// document mirrors a minidsp settings export with an embedded beq_metadata
// block. Unknown elements are ignored.
type document struct {
	XMLName  xml.Name    `xml:"setting"`
	Metadata *metadata   `xml:"beq_metadata"`
	Filters  []filterXML `xml:"filter"`
}

type metadata struct {
	Title       *string    `xml:"beq_title"`
	AltTitle    string     `xml:"beq_alt_title"`
	SortTitle   string     `xml:"beq_sortTitle"`
	Year        string     `xml:"beq_year"`
	Edition     string     `xml:"beq_edition"`
	Note        string     `xml:"beq_note"`
	Warning     string     `xml:"beq_warning"`
	Gain        string     `xml:"beq_gain"`
	Language    string     `xml:"beq_language"`
	Source      string     `xml:"beq_source"`
	Overview    string     `xml:"beq_overview"`
	Runtime     string     `xml:"beq_runtime"`
	TMDB        string     `xml:"beq_theMovieDB"`
	AVS         string     `xml:"beq_avs"`
	PVAURL      string     `xml:"beq_pvaURL"`
	SpectrumURL string     `xml:"beq_spectrumURL"`
	Images      []string   `xml:"beq_images>image"`
	AudioTypes  []string   `xml:"beq_audioTypes>audioType"`
	Genres      []string   `xml:"beq_genres>genre"`
	Season      *seasonXML `xml:"beq_season"`
}

type seasonXML struct {
	ID       string `xml:"id,attr"`
	Number   string `xml:"number,attr"`
	Episodes string `xml:"episodes,attr"`
	Text     string `xml:",chardata"`
}

type filterXML struct {
	Name   string `xml:"name,attr"`
	Freq   string `xml:"freq"`
	Q      string `xml:"q"`
	Boost  string `xml:"boost"`
	Type   string `xml:"type"`
	Bypass string `xml:"bypass"`
}

func parseDocument(data []byte) (document, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("parse xml: %w", err)
	}
	return doc, nil
}

// toRecord converts a parsed document into a raw record. rel is the
// source-relative path; tvPath reports whether the path sits under a TV
// directory.
func (doc document) toRecord(rel string, tvPath bool, decoder filterdecode.Decoder) (record.RawRecord, error) {
	rec := record.RawRecord{
		SourcePath:  rel,
		ContentType: record.ContentFilm,
	}
	if tvPath {
		rec.ContentType = record.ContentTV
	}

	if md := doc.Metadata; md != nil {
		if md.Title != nil {
			rec.Title = record.StringPtr(strings.TrimSpace(*md.Title))
		}
		rec.AltTitle = strings.TrimSpace(md.AltTitle)
		rec.SortTitle = strings.TrimSpace(md.SortTitle)
		rec.Year = strings.TrimSpace(md.Year)
		rec.Edition = strings.TrimSpace(md.Edition)
		rec.Note = strings.TrimSpace(md.Note)
		rec.Warning = strings.TrimSpace(md.Warning)
		rec.Gain = strings.TrimSpace(md.Gain)
		rec.Language = strings.TrimSpace(md.Language)
		rec.SourceLabel = strings.TrimSpace(md.Source)
		rec.Overview = strings.TrimSpace(md.Overview)
		rec.Runtime = strings.TrimSpace(md.Runtime)
		rec.AudioTypes = nonEmpty(md.AudioTypes)
		rec.Genres = genreSet(md.Genres)
		rec.Images = nonEmpty(append([]string{md.PVAURL, md.SpectrumURL}, md.Images...))

		refs := make(map[string]string)
		if v := strings.TrimSpace(md.AVS); v != "" {
			refs[record.RefDiscussion] = v
		}
		if v := strings.TrimSpace(md.TMDB); v != "" {
			refs[record.RefTMDB] = v
		}
		if len(refs) > 0 {
			rec.ExternalRefs = refs
		}

		if md.Season != nil {
			season, err := md.Season.toSeason()
			if err != nil {
				return record.RawRecord{}, err
			}
			if season != nil {
				rec.Season = season
				rec.ContentType = record.ContentTV
			}
		}
	}

	if len(doc.Filters) > 0 {
		raw := make([]filterdecode.RawFilter, 0, len(doc.Filters))
		for _, f := range doc.Filters {
			raw = append(raw, filterdecode.RawFilter{
				Name:   f.Name,
				Type:   f.Type,
				Freq:   f.Freq,
				Q:      f.Q,
				Gain:   f.Boost,
				Bypass: isTrue(f.Bypass),
			})
		}
		decoded, err := decoder.Decode(raw)
		if err != nil {
			return record.RawRecord{}, fmt.Errorf("decode filters: %w", err)
		}
		rec.Filters = &decoded
	}
	return rec, nil
}

func (s seasonXML) toSeason() (*record.Season, error) {
	text := strings.TrimSpace(s.Text)
	number := strings.TrimSpace(s.Number)
	if number == "" {
		if text == "" {
			return nil, nil
		}
		return record.UnstructuredSeason(text), nil
	}
	n, err := strconv.Atoi(number)
	if err != nil {
		return nil, fmt.Errorf("season number %q is not an integer", number)
	}
	count := 0
	if c := strings.TrimSpace(s.Episodes); c != "" {
		count, err = strconv.Atoi(c)
		if err != nil {
			return nil, fmt.Errorf("season episode count %q is not an integer", c)
		}
	}
	episodes, err := record.ParseEpisodeList(text)
	if err != nil {
		return nil, fmt.Errorf("season %d: %w", n, err)
	}
	return record.StructuredSeason(s.ID, n, count, episodes), nil
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func genreSet(values []string) []string {
	out := nonEmpty(values)
	slices.Sort(out)
	return slices.Compact(out)
}

func isTrue(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
