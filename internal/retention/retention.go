package retention

import (
	"slices"

	"beqcat/internal/catalogue"
)

// Retained is the prior output of sources that failed this run, carried
// forward unchanged.
type Retained struct {
	Rows    []catalogue.Row
	Entries []catalogue.Entry
	// Pages lists the page paths the retained entries point at, sorted.
	Pages []string
}

// Empty reports whether nothing was retained.
func (r Retained) Empty() bool {
	return len(r.Rows) == 0 && len(r.Entries) == 0
}

// Reconcile selects, in prior order, the CSV rows and JSON entries authored by
// any of the failed sources, plus the pages those entries reference.
func Reconcile(failed []string, priorRows []catalogue.Row, priorEntries []catalogue.Entry) Retained {
	if len(failed) == 0 {
		return Retained{}
	}
	isFailed := make(map[string]struct{}, len(failed))
	for _, id := range failed {
		isFailed[id] = struct{}{}
	}

	var out Retained
	for _, row := range priorRows {
		if _, ok := isFailed[row.Author()]; ok {
			out.Rows = append(out.Rows, slices.Clone(row))
		}
	}
	pages := make(map[string]struct{})
	for _, e := range priorEntries {
		if _, ok := isFailed[e.Author]; !ok {
			continue
		}
		out.Entries = append(out.Entries, e)
		if e.Page != "" {
			pages[e.Page] = struct{}{}
		}
	}
	for p := range pages {
		out.Pages = append(out.Pages, p)
	}
	slices.Sort(out.Pages)
	return out
}
