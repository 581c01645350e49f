package grouping

import (
	"fmt"
	"log/slog"
	"strings"

	"beqcat/internal/logging"
	"beqcat/internal/record"
	"beqcat/internal/textutil"
)

// KeyKind separates the namespaces a group key can live in.
type KeyKind int

const (
	// KeyTitle groups by the case-folded title (films) or raw title (TV).
	KeyTitle KeyKind = iota
	// KeyPageTitle groups films split off by a title collision.
	KeyPageTitle
	// KeyFallback is a standalone group for a record named from its file name.
	KeyFallback
)

// Key identifies a canonical title within one source.
type Key struct {
	Kind KeyKind
	Name string
}

// Group is one canonical title and its member records in extraction order.
type Group struct {
	Key     Key
	Title   string
	Records []record.RawRecord
}

// PageTitle is the title used for a film page: title plus the external
// database id when known, otherwise the year.
func PageTitle(r record.RawRecord) string {
	title := strings.TrimSpace(r.TitleText())
	disambiguator := r.Ref(record.RefTMDB)
	if disambiguator == "" {
		disambiguator = strings.TrimSpace(r.Year)
	}
	if disambiguator == "" {
		return title
	}
	return title + " (" + disambiguator + ")"
}

// Grouper assigns one source's records to canonical titles.
type Grouper struct {
	sourceID string
	logger   *slog.Logger
}

// New builds a grouper for records of one source.
func New(sourceID string, logger *slog.Logger) *Grouper {
	return &Grouper{
		sourceID: sourceID,
		logger:   logging.NewComponentLogger(logger, "grouper").With(logging.String(logging.FieldSource, sourceID)),
	}
}

type builder struct {
	order  []Key
	groups map[Key]*Group
}

func newBuilder() *builder {
	return &builder{groups: make(map[Key]*Group)}
}

func (b *builder) add(key Key, title string, r record.RawRecord) {
	g, ok := b.groups[key]
	if !ok {
		g = &Group{Key: key, Title: title}
		b.groups[key] = g
		b.order = append(b.order, key)
	}
	g.Records = append(g.Records, r)
}

func (b *builder) result() []Group {
	out := make([]Group, 0, len(b.order))
	for _, key := range b.order {
		out = append(out, *b.groups[key])
	}
	return out
}

// Group partitions records by content type and groups each partition, films
// first. Failing records are logged, skipped and returned as errors.
func (g *Grouper) Group(records []record.RawRecord) ([]Group, []record.RecordError) {
	var films, shows []record.RawRecord
	for _, r := range records {
		if r.ContentType == record.ContentTV {
			shows = append(shows, r)
		} else {
			films = append(films, r)
		}
	}
	filmGroups, filmErrs := g.Films(films)
	tvGroups, tvErrs := g.TV(shows)
	return append(filmGroups, tvGroups...), append(filmErrs, tvErrs...)
}

// Films groups film records by case-folded title, splitting off records whose
// page title differs from the group's first member.
func (g *Grouper) Films(records []record.RawRecord) ([]Group, []record.RecordError) {
	b := newBuilder()
	var errs []record.RecordError
	for _, r := range records {
		err := g.guard(r, func() error {
			r, fallback, err := g.resolveTitle(r)
			if err != nil {
				return err
			}
			if fallback {
				b.add(Key{Kind: KeyFallback, Name: r.SourcePath}, r.TitleText(), r)
				return nil
			}
			title := strings.TrimSpace(r.TitleText())
			key := Key{Kind: KeyTitle, Name: textutil.Fold(title)}
			if existing, ok := b.groups[key]; ok {
				page := PageTitle(r)
				if textutil.Fold(PageTitle(existing.Records[0])) != textutil.Fold(page) {
					g.logger.Debug("title collision resolved by page title",
						logging.String("title", title),
						logging.String("page_title", page),
						logging.String(logging.FieldPath, r.SourcePath),
					)
					b.add(Key{Kind: KeyPageTitle, Name: textutil.Fold(page)}, page, r)
					return nil
				}
			}
			b.add(key, title, r)
			return nil
		})
		if err != nil {
			errs = append(errs, *err)
		}
	}
	return b.result(), errs
}

// TV groups TV records by title after episode markers have been extracted.
func (g *Grouper) TV(records []record.RawRecord) ([]Group, []record.RecordError) {
	b := newBuilder()
	var errs []record.RecordError
	for _, r := range records {
		err := g.guard(r, func() error {
			r, fallback, err := g.resolveTitle(r)
			if err != nil {
				return err
			}
			info := ExtractEpisode(r.TitleText(), r.Note)
			if info.Unparsed {
				g.logger.Warn("unrecognised episode note kept",
					logging.String(logging.FieldPath, r.SourcePath),
					logging.String("note", info.Note),
				)
			}
			if info.Title == "" {
				return fmt.Errorf("title is empty once the episode suffix is removed")
			}
			r.Title = record.StringPtr(info.Title)
			r.Note = info.Note
			if info.Episode != "" {
				r.Episode = info.Episode
			}
			if fallback {
				b.add(Key{Kind: KeyFallback, Name: r.SourcePath}, info.Title, r)
				return nil
			}
			b.add(Key{Kind: KeyTitle, Name: info.Title}, info.Title, r)
			return nil
		})
		if err != nil {
			errs = append(errs, *err)
		}
	}
	return b.result(), errs
}

// resolveTitle returns the record with a usable title, applying the file name
// fallback to title-less records.
func (g *Grouper) resolveTitle(r record.RawRecord) (record.RawRecord, bool, error) {
	if r.HasTitle() {
		return r, false, nil
	}
	fb, err := ParseFallbackTitle(r.BaseName())
	if err != nil {
		return r, false, err
	}
	r.Title = record.StringPtr(fb.Title)
	if strings.TrimSpace(r.Year) == "" {
		r.Year = fb.Year
	}
	if len(r.AudioTypes) == 0 {
		r.AudioTypes = fb.AudioTypes
	}
	return r, true, nil
}

// guard runs fn for one record, converting errors and panics into a logged
// RecordError so one bad record never stops the source.
func (g *Grouper) guard(r record.RawRecord, fn func() error) (recErr *record.RecordError) {
	defer func() {
		if p := recover(); p != nil {
			recErr = g.recordError(r, fmt.Errorf("panic: %v", p))
		}
	}()
	if err := fn(); err != nil {
		return g.recordError(r, err)
	}
	return nil
}

func (g *Grouper) recordError(r record.RawRecord, err error) *record.RecordError {
	g.logger.Warn("record skipped",
		logging.String(logging.FieldPath, r.SourcePath),
		logging.String("source_label", r.SourceLabel),
		logging.Error(err),
		logging.String(logging.FieldEventType, "record_error"),
	)
	return &record.RecordError{SourceID: g.sourceID, Path: r.SourcePath, Message: err.Error()}
}
