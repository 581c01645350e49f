package record

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// SeasonKind tags which variant a Season holds.
type SeasonKind int

const (
	SeasonUnstructured SeasonKind = iota
	SeasonStructured
)

// Season is either free text supplied by an author (Unstructured) or a
// structured descriptor with an optional explicit episode list.
type Season struct {
	Kind SeasonKind

	// Unstructured
	Text string

	// Structured
	ID       string
	Number   int
	Count    int
	Episodes []int
	Complete bool
}

// UnstructuredSeason wraps free-text season information.
func UnstructuredSeason(text string) *Season {
	return &Season{Kind: SeasonUnstructured, Text: strings.TrimSpace(text)}
}

// StructuredSeason builds a structured season. Completeness is derived: the
// season is complete only when episodes is exactly the set {1..count}.
func StructuredSeason(id string, number, count int, episodes []int) *Season {
	eps := normalizeEpisodes(episodes)
	return &Season{
		Kind:     SeasonStructured,
		ID:       strings.TrimSpace(id),
		Number:   number,
		Count:    count,
		Episodes: eps,
		Complete: isComplete(count, eps),
	}
}

// Label renders the season for headings and CSV rows.
func (s *Season) Label() string {
	if s == nil {
		return ""
	}
	if s.Kind == SeasonUnstructured {
		return s.Text
	}
	return "Season " + strconv.Itoa(s.Number)
}

// Key is the canonical representation used for digests and row identity.
func (s *Season) Key() string {
	if s == nil {
		return ""
	}
	if s.Kind == SeasonUnstructured {
		return s.Text
	}
	key := fmt.Sprintf("S%d", s.Number)
	if s.Complete {
		return key + "|complete"
	}
	if len(s.Episodes) > 0 {
		parts := make([]string, len(s.Episodes))
		for i, ep := range s.Episodes {
			parts[i] = strconv.Itoa(ep)
		}
		return key + "|E" + strings.Join(parts, ",")
	}
	if s.Count > 0 {
		return key + "|n" + strconv.Itoa(s.Count)
	}
	return key
}

// ParseEpisodeList parses "1,2,5-7" style lists. Blank input yields nil.
func ParseEpisodeList(value string) ([]int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("episode range %q: %w", part, err)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("episode range %q: %w", part, err)
			}
			if end < start {
				return nil, fmt.Errorf("episode range %q is descending", part)
			}
			for ep := start; ep <= end; ep++ {
				out = append(out, ep)
			}
			continue
		}
		ep, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("episode %q: %w", part, err)
		}
		out = append(out, ep)
	}
	return out, nil
}

func normalizeEpisodes(episodes []int) []int {
	if len(episodes) == 0 {
		return nil
	}
	out := slices.Clone(episodes)
	slices.Sort(out)
	return slices.Compact(out)
}

func isComplete(count int, sortedUnique []int) bool {
	if count <= 0 || len(sortedUnique) != count {
		return false
	}
	for i, ep := range sortedUnique {
		if ep != i+1 {
			return false
		}
	}
	return true
}
