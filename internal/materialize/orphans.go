package materialize

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// Orphans lists Markdown pages under each source directory of root that are
// not in touched. Candidates are reported for a human to review; nothing is
// deleted. Paths are docs-relative with forward slashes, sorted.
func Orphans(root string, sourceIDs []string, touched []string) ([]string, error) {
	keep := make(map[string]struct{}, len(touched))
	for _, p := range touched {
		keep[p] = struct{}{}
	}

	var orphans []string
	for _, id := range sourceIDs {
		dir := filepath.Join(root, id)
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) && path == dir {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if _, ok := keep[rel]; !ok {
				orphans = append(orphans, rel)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(orphans)
	return orphans, nil
}
