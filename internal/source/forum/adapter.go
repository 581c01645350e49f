package forum

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"beqcat/internal/config"
	"beqcat/internal/logging"
	"beqcat/internal/provenance"
	"beqcat/internal/record"
	"beqcat/internal/source"
)

// IndexPage is the cached thread index file name.
const IndexPage = "first.html"

var postLink = regexp.MustCompile(`(?:post-|/posts/)(\d+)/?$`)

// post is one catalogue entry linked from the thread index.
type post struct {
	ID   string
	Name string
}

// Adapter builds records from forum thread pages cached on disk: the index
// page links each catalogue post, and each post page carries the images.
type Adapter struct {
	id         string
	dir        string
	threadURL  string
	trackMtime bool
	logger     *slog.Logger
}

// New is the source.Factory for kind "forum".
func New(src config.Source, deps source.Deps) (source.Adapter, error) {
	dir := strings.TrimSpace(src.Path)
	if dir == "" {
		return nil, fmt.Errorf("path is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Adapter{
		id:         src.ID,
		dir:        dir,
		threadURL:  strings.TrimRight(strings.TrimSpace(src.ThreadURL), "/"),
		trackMtime: src.TrackMtime,
		logger: logging.NewComponentLogger(logger, "forum").With(
			logging.String(logging.FieldSource, src.ID),
		),
	}, nil
}

// ID implements source.Adapter.
func (a *Adapter) ID() string { return a.id }

// HealthCheck reports whether the cached index page exists.
func (a *Adapter) HealthCheck(context.Context) source.Health {
	if _, err := os.Stat(filepath.Join(a.dir, IndexPage)); err != nil {
		return source.Unhealthy(a.id, err.Error())
	}
	return source.Healthy(a.id)
}

// Extract reads the index page and every linked post page. A missing or
// unreadable index fails the source; a missing post page or one without
// images is a record error.
func (a *Adapter) Extract(ctx context.Context) (source.Extraction, error) {
	index, err := os.ReadFile(filepath.Join(a.dir, IndexPage))
	if err != nil {
		return source.Extraction{}, fmt.Errorf("read thread index: %w", err)
	}
	posts, err := a.parseIndex(index)
	if err != nil {
		return source.Extraction{}, err
	}
	a.logger.Debug("thread index parsed", logging.Int("posts", len(posts)))

	var ext source.Extraction
	for _, p := range posts {
		if err := ctx.Err(); err != nil {
			return source.Extraction{}, err
		}
		rel := "post-" + p.ID + ".html"
		rec, err := a.readPost(p, rel)
		if err != nil {
			a.logger.Warn("post skipped",
				logging.String(logging.FieldPath, rel),
				logging.String("post_name", p.Name),
				logging.Error(err),
				logging.String(logging.FieldEventType, "record_error"),
			)
			ext.Errors = append(ext.Errors, record.RecordError{SourceID: a.id, Path: rel, Message: err.Error()})
			continue
		}
		ext.Records = append(ext.Records, rec)
		if a.trackMtime {
			if info, err := os.Stat(filepath.Join(a.dir, rel)); err == nil {
				ext.Observed = append(ext.Observed, provenance.DiffEntry{Path: rel, Timestamp: info.ModTime().Unix()})
			}
		}
	}
	return ext, nil
}

func (a *Adapter) parseIndex(data []byte) ([]post, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse thread index: %w", err)
	}
	var posts []post
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if a.threadURL != "" && strings.HasPrefix(href, "http") && !strings.HasPrefix(href, a.threadURL) {
			return
		}
		m := postLink.FindStringSubmatch(href)
		if m == nil {
			return
		}
		name := normSpace(s.Text())
		if name == "" || strings.Contains(name, "://") {
			return
		}
		if _, dup := seen[m[1]]; dup {
			return
		}
		seen[m[1]] = struct{}{}
		posts = append(posts, post{ID: m[1], Name: name})
	})
	return posts, nil
}

func (a *Adapter) readPost(p post, rel string) (record.RawRecord, error) {
	data, err := os.ReadFile(filepath.Join(a.dir, rel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return record.RawRecord{}, fmt.Errorf("post page is not cached")
		}
		return record.RawRecord{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return record.RawRecord{}, fmt.Errorf("parse post page: %w", err)
	}

	var images []string
	doc.Find(fmt.Sprintf("article[data-content=post-%s] img[data-src]", p.ID)).Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("data-src"); ok && strings.TrimSpace(src) != "" {
			images = append(images, strings.TrimSpace(src))
		}
	})
	if len(images) == 0 {
		return record.RawRecord{}, fmt.Errorf("no content found in post %s", p.ID)
	}

	rec := record.RawRecord{
		SourcePath:  rel,
		FileName:    p.Name,
		ContentType: record.ContentFilm,
		Images:      images,
	}
	if a.threadURL != "" {
		rec.ExternalRefs = map[string]string{record.RefDiscussion: a.threadURL + "/post-" + p.ID}
	}
	return rec, nil
}

func normSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
