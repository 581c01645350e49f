package catalogue

import (
	"slices"
	"strings"

	lfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"
)

// titleIndex implements fuzzy.Source over entry titles.
type titleIndex struct {
	entries []Entry
	lower   []string
}

func (idx *titleIndex) String(i int) string { return idx.lower[i] }

func (idx *titleIndex) Len() int { return len(idx.entries) }

// Match is one search hit.
type Match struct {
	Entry          Entry
	Score          int
	MatchedIndexes []int
}

// Search ranks entries whose title fuzzily matches query, best first. Ties
// keep catalogue order. limit <= 0 returns every match.
func Search(entries []Entry, query string, limit int) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(entries) == 0 {
		return nil
	}
	idx := &titleIndex{entries: entries, lower: make([]string, len(entries))}
	for i, e := range entries {
		idx.lower[i] = strings.ToLower(searchText(e))
	}

	found := fuzzy.FindFrom(query, idx)
	slices.SortStableFunc(found, func(a, b fuzzy.Match) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return a.Index - b.Index
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]Match, 0, len(found))
	for _, m := range found {
		out = append(out, Match{Entry: entries[m.Index], Score: m.Score, MatchedIndexes: m.MatchedIndexes})
	}
	return out
}

// Suggest returns up to limit distinct titles closest to query by edit
// distance, for "did you mean" hints when Search finds nothing.
func Suggest(entries []Entry, query string, limit int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	type candidate struct {
		title    string
		distance int
	}
	seen := make(map[string]struct{})
	var candidates []candidate
	for _, e := range entries {
		if _, ok := seen[e.Title]; ok {
			continue
		}
		seen[e.Title] = struct{}{}
		candidates = append(candidates, candidate{e.Title, lfuzzy.LevenshteinDistance(query, strings.ToLower(e.Title))})
	}
	slices.SortStableFunc(candidates, func(a, b candidate) int { return a.distance - b.distance })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.title)
	}
	return out
}

func searchText(e Entry) string {
	if e.Year == "" {
		return e.Title
	}
	return e.Title + " " + e.Year
}
