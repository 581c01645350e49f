package xmlrepo

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"beqcat/internal/config"
	"beqcat/internal/filterdecode"
	"beqcat/internal/logging"
	"beqcat/internal/provenance"
	"beqcat/internal/record"
	"beqcat/internal/source"
)

// tvDirs are directory names that mark everything beneath them as TV.
var tvDirs = map[string]struct{}{
	"tv":        {},
	"tv shows":  {},
	"tv series": {},
	"series":    {},
}

// Adapter reads BEQ XML files from a local checkout of an author repository.
type Adapter struct {
	id         string
	root       string
	trackMtime bool
	decoder    filterdecode.Decoder
	logger     *slog.Logger
}

// New is the source.Factory for kind "xml".
func New(src config.Source, deps source.Deps) (source.Adapter, error) {
	root := strings.TrimSpace(src.Path)
	if root == "" {
		return nil, fmt.Errorf("path is required")
	}
	decoder := deps.Decoder
	if decoder == nil {
		decoder = filterdecode.Biquad{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Adapter{
		id:         src.ID,
		root:       root,
		trackMtime: src.TrackMtime,
		decoder:    decoder,
		logger: logging.NewComponentLogger(logger, "xmlrepo").With(
			logging.String(logging.FieldSource, src.ID),
		),
	}, nil
}

// ID implements source.Adapter.
func (a *Adapter) ID() string { return a.id }

// HealthCheck reports whether the checkout is present.
func (a *Adapter) HealthCheck(context.Context) source.Health {
	info, err := os.Stat(a.root)
	if err != nil {
		return source.Unhealthy(a.id, err.Error())
	}
	if !info.IsDir() {
		return source.Unhealthy(a.id, a.root+" is not a directory")
	}
	return source.Healthy(a.id)
}

// Extract walks the checkout in lexical order and parses every .xml file.
// Hidden directories are skipped. A missing checkout fails the source; a bad
// file is reported as a record error.
func (a *Adapter) Extract(ctx context.Context) (source.Extraction, error) {
	info, err := os.Stat(a.root)
	if err != nil {
		return source.Extraction{}, fmt.Errorf("open checkout: %w", err)
	}
	if !info.IsDir() {
		return source.Extraction{}, fmt.Errorf("checkout %s is not a directory", a.root)
	}

	var ext source.Extraction
	err = filepath.WalkDir(a.root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			return walkErr
		}
		name := d.Name()
		if d.IsDir() {
			if path != a.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(name), ".xml") {
			return nil
		}
		rel, err := filepath.Rel(a.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		rec, err := a.readFile(path, rel)
		if err != nil {
			a.logger.Warn("bad input file",
				logging.String(logging.FieldPath, rel),
				logging.Error(err),
				logging.String(logging.FieldEventType, "record_error"),
			)
			ext.Errors = append(ext.Errors, record.RecordError{SourceID: a.id, Path: rel, Message: err.Error()})
		} else {
			ext.Records = append(ext.Records, rec)
		}

		if a.trackMtime {
			if fi, err := d.Info(); err == nil {
				ext.Observed = append(ext.Observed, provenance.DiffEntry{Path: rel, Timestamp: fi.ModTime().Unix()})
			}
		}
		return nil
	})
	if err != nil {
		return source.Extraction{}, fmt.Errorf("walk checkout: %w", err)
	}

	a.logger.Debug("extraction complete",
		logging.Int("records", len(ext.Records)),
		logging.Int("errors", len(ext.Errors)),
	)
	return ext, nil
}

func (a *Adapter) readFile(path, rel string) (record.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return record.RawRecord{}, err
	}
	doc, err := parseDocument(data)
	if err != nil {
		return record.RawRecord{}, err
	}
	return doc.toRecord(rel, underTVDir(rel), a.decoder)
}

func underTVDir(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, dir := range parts[:len(parts)-1] {
		if _, ok := tvDirs[strings.ToLower(dir)]; ok {
			return true
		}
	}
	return false
}
