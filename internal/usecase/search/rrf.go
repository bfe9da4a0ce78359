package search

import (
	"slices"
	"strings"

	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/result"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/retriever"
)

// fuseRRF merges branch lists via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) over every branch whose first window
// candidates contain d, rank being the 1-based position in the branch list. Ties break on id ascending so output is reproducible.
// Inner hits are unioned in branch order.
func fuseRRF(lists []result.CandidateList, window, k int) []result.Fused {
	byID := make(map[string]*result.Fused)
	seenHit := make(map[string]map[string]struct{})

	for _, l := range lists {
		candidates := l.Candidates
		if len(candidates) > window {
			candidates = candidates[:window]
		}
		for i, c := range candidates {
			rank := i + 1
			f, ok := byID[c.ID]
			if !ok {
				f = &result.Fused{ID: c.ID, Ranks: make(map[retriever.Kind]int, len(lists))}
				byID[c.ID] = f
				seenHit[c.ID] = make(map[string]struct{})
			}
			if _, dup := f.Ranks[l.Branch]; dup {
				continue
			}
			f.Ranks[l.Branch] = rank
			f.Score += 1.0 / float64(k+rank)
			for _, seg := range c.InnerHitIDs {
				if _, dup := seenHit[c.ID][seg]; dup {
					continue
				}
				seenHit[c.ID][seg] = struct{}{}
				f.InnerHitIDs = append(f.InnerHitIDs, seg)
			}
		}
	}

	fused := make([]result.Fused, 0, len(byID))
	for _, f := range byID {
		fused = append(fused, *f)
	}
	slices.SortFunc(fused, func(a, b result.Fused) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	return fused
}

// hitTotal estimates how many subjects matched. Branch totals are counted
// before windowing, so each of them and the fused count is a lower bound on
// the union; the largest one wins.
func hitTotal(lists []result.CandidateList, fused int) int {
	total := fused
	for _, l := range lists {
		total = max(total, l.Total)
	}
	return total
}

// paginate slices the fused list and stamps it with total.
func paginate(fused []result.Fused, from, size, total int) result.Page {
	page := result.Page{Total: total}
	if from >= len(fused) {
		page.Hits = []result.Fused{}
		return page
	}
	end := min(from+size, len(fused))
	page.Hits = fused[from:end]
	return page
}
