package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"beqcat/internal/fileutil"
)

// DirName is the staging root created inside the output directory. Keeping it
// on the same filesystem as the published tree makes publish a rename.
const DirName = ".staging"

// Root returns the staging root for outputDir.
func Root(outputDir string) string {
	return filepath.Join(outputDir, DirName)
}

// Stage is one run's private staging directory.
type Stage struct {
	dir string
}

// New creates a fresh staging directory under Root(outputDir).
func New(outputDir string) (*Stage, error) {
	root := Root(outputDir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}
	dir, err := os.MkdirTemp(root, "run-")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	return &Stage{dir: dir}, nil
}

// Dir returns the staging directory path.
func (s *Stage) Dir() string { return s.dir }

// Write stores files, keyed by slash-separated relative path, in the stage.
func (s *Stage) Write(files map[string][]byte) error {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, rel := range paths {
		target := filepath.Join(s.dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("stage %s: %w", rel, err)
		}
		if err := os.WriteFile(target, files[rel], 0o644); err != nil {
			return fmt.Errorf("stage %s: %w", rel, err)
		}
	}
	return nil
}

// BackupSuffix names the directory next to a stage that holds the files a
// publish replaces until the publish completes.
const BackupSuffix = ".prev"

var moveFile = fileutil.MoveFile

// Publish moves every staged file to the same relative path under target,
// replacing existing files and leaving all others alone, then removes the
// stage. It returns the published relative paths, sorted.
//
// Publish is all or nothing. Every file about to be replaced is first moved
// into a backup directory; on the first failure the files already published
// are removed and the backups restored, so target holds exactly what it held
// before the call.
func (s *Stage) Publish(target string) ([]string, error) {
	staged, err := s.files()
	if err != nil {
		return nil, err
	}

	backup := s.dir + BackupSuffix
	var saved, published []string
	rollback := func(cause error) ([]string, error) {
		for _, rel := range published {
			_ = os.Remove(filepath.Join(target, filepath.FromSlash(rel)))
		}
		var failed []string
		for _, rel := range saved {
			if err := moveFile(filepath.Join(backup, filepath.FromSlash(rel)), filepath.Join(target, filepath.FromSlash(rel))); err != nil {
				failed = append(failed, rel)
			}
		}
		if len(failed) > 0 {
			return nil, fmt.Errorf("%w; restore incomplete, previous copies of %s kept in %s", cause, strings.Join(failed, ", "), backup)
		}
		_ = os.RemoveAll(backup)
		return nil, cause
	}

	for _, rel := range staged {
		dst := filepath.Join(target, filepath.FromSlash(rel))
		info, err := os.Lstat(dst)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return rollback(fmt.Errorf("publish %s: %w", rel, err))
		}
		if info.IsDir() {
			return rollback(fmt.Errorf("publish %s: target is a directory", rel))
		}
		if err := moveFile(dst, filepath.Join(backup, filepath.FromSlash(rel))); err != nil {
			return rollback(fmt.Errorf("back up %s: %w", rel, err))
		}
		saved = append(saved, rel)
	}

	for _, rel := range staged {
		src := filepath.Join(s.dir, filepath.FromSlash(rel))
		if err := moveFile(src, filepath.Join(target, filepath.FromSlash(rel))); err != nil {
			return rollback(fmt.Errorf("publish %s: %w", rel, err))
		}
		published = append(published, rel)
	}

	if err := os.RemoveAll(backup); err != nil {
		return published, fmt.Errorf("remove publish backup: %w", err)
	}
	return published, s.Discard()
}

// files lists the staged files as sorted slash-separated relative paths.
func (s *Stage) files() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list staged files: %w", err)
	}
	slices.Sort(files)
	return files, nil
}

// Discard removes the stage and anything still in it.
func (s *Stage) Discard() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove staging directory: %w", err)
	}
	return nil
}
