package search

import (
	"math"
	"slices"
	"testing"

	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/result"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/retriever"
)

const eps = 1e-12

func TestFuseRRF_SingleBranchScore(t *testing.T) {
	fused := fuseRRF([]result.CandidateList{candidates(retriever.Lexical, "a", "b", "c")}, 100, 60)
	if len(fused) != 3 {
		t.Fatalf("expected 3 results, got %d", len(fused))
	}
	for i, f := range fused {
		want := 1.0 / float64(60+i+1)
		if math.Abs(f.Score-want) > eps {
			t.Errorf("%s: score = %v, want %v", f.ID, f.Score, want)
		}
	}
}

func TestFuseRRF_TwoBranchScore(t *testing.T) {
	lexical := candidates(retriever.Lexical, "a", "b", "c")
	nested := candidates(retriever.Nested, "x", "c")

	fused := fuseRRF([]result.CandidateList{lexical, nested}, 100, 60)
	var c result.Fused
	for _, f := range fused {
		if f.ID == "c" {
			c = f
		}
	}
	r1 := 1.0 / float64(60+3)
	r2 := 1.0 / float64(60+2)
	if math.Abs(c.Score-(r1+r2)) > eps {
		t.Errorf("score = %v, want %v", c.Score, r1+r2)
	}
	if c.Score <= r1 || c.Score <= r2 {
		t.Error("fused score must exceed either summand")
	}
	if c.Ranks[retriever.Lexical] != 3 || c.Ranks[retriever.Nested] != 2 {
		t.Errorf("ranks = %v", c.Ranks)
	}
}

func TestFuseRRF_MonotonicScores(t *testing.T) {
	lists := []result.CandidateList{
		candidates(retriever.Lexical, "a", "b", "c", "d", "e"),
		candidates(retriever.Nested, "e", "c", "f", "a"),
		candidates(retriever.Semantic, "g", "a", "h"),
	}
	fused := fuseRRF(lists, 100, 60)
	if len(fused) != 8 {
		t.Fatalf("expected 8 distinct results, got %d", len(fused))
	}
	for i := 1; i < len(fused); i++ {
		if fused[i].Score > fused[i-1].Score {
			t.Errorf("score increased at %d: %v > %v", i, fused[i].Score, fused[i-1].Score)
		}
	}
	if fused[0].ID != "a" {
		t.Errorf("expected 'a' (present in all branches) first, got %s", fused[0].ID)
	}
}

func TestFuseRRF_RankConstantShrinksGap(t *testing.T) {
	list := []result.CandidateList{candidates(retriever.Lexical, "a", "b")}
	prevGap := math.Inf(1)
	for _, k := range []int{1, 10, 60, 1000} {
		fused := fuseRRF(list, 100, k)
		gap := fused[0].Score - fused[1].Score
		if gap <= 0 || gap >= prevGap {
			t.Errorf("k=%d: gap %v should be positive and below %v", k, gap, prevGap)
		}
		prevGap = gap
	}
}

func TestFuseRRF_TieBreakByID(t *testing.T) {
	lists := []result.CandidateList{
		candidates(retriever.Lexical, "zeta", "alpha"),
		candidates(retriever.Nested, "alpha", "zeta"),
	}
	for range 5 {
		fused := fuseRRF(lists, 100, 60)
		if got := fusedIDs(fused); !slices.Equal(got, []string{"alpha", "zeta"}) {
			t.Fatalf("order = %v", got)
		}
	}

	disjoint := []result.CandidateList{
		candidates(retriever.Lexical, "m"),
		candidates(retriever.Nested, "b"),
		candidates(retriever.Semantic, "k"),
	}
	if got := fusedIDs(fuseRRF(disjoint, 100, 60)); !slices.Equal(got, []string{"b", "k", "m"}) {
		t.Errorf("order = %v", got)
	}
}

func TestFuseRRF_WindowTruncatesBranches(t *testing.T) {
	lists := []result.CandidateList{
		candidates(retriever.Lexical, "a", "b", "c"),
		candidates(retriever.Nested, "d", "e", "c"),
	}
	fused := fuseRRF(lists, 2, 60)
	if got := fusedIDs(fused); slices.Contains(got, "c") {
		t.Errorf("candidate beyond the window leaked into fusion: %v", got)
	}
	if len(fused) != 4 {
		t.Errorf("expected 4 results, got %d", len(fused))
	}
}

func TestFuseRRF_InnerHitUnion(t *testing.T) {
	nested := result.NewCandidateList(retriever.Nested, 1,
		result.Candidate{ID: "a", InnerHitIDs: []string{"g1", "g2"}})
	extra := result.CandidateList{Branch: "extra", Candidates: []result.Candidate{
		{ID: "a", Rank: 1, InnerHitIDs: []string{"g2", "g3"}},
	}}
	lexical := candidates(retriever.Lexical, "a")

	fused := fuseRRF([]result.CandidateList{lexical, nested, extra}, 10, 60)
	if len(fused) != 1 {
		t.Fatalf("expected 1 result, got %d", len(fused))
	}
	if got := fused[0].InnerHitIDs; !slices.Equal(got, []string{"g1", "g2", "g3"}) {
		t.Errorf("inner hits = %v", got)
	}
}

func TestFuseRRF_Empty(t *testing.T) {
	fused := fuseRRF([]result.CandidateList{
		candidates(retriever.Lexical),
		candidates(retriever.Nested),
	}, 10, 60)
	if len(fused) != 0 {
		t.Errorf("expected no results, got %d", len(fused))
	}
}

func TestPaginate(t *testing.T) {
	ids := make([]string, 25)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}
	fused := fuseRRF([]result.CandidateList{candidates(retriever.Lexical, ids...)}, 100, 60)

	page := paginate(fused, 10, 10, len(fused))
	if page.Total != 25 {
		t.Errorf("Total = %d", page.Total)
	}
	if got := fusedIDs(page.Hits); !slices.Equal(got, ids[10:20]) {
		t.Errorf("page = %v, want %v", got, ids[10:20])
	}

	tail := paginate(fused, 20, 10, len(fused))
	if len(tail.Hits) != 5 || tail.Total != 25 {
		t.Errorf("tail page = %d hits, total %d", len(tail.Hits), tail.Total)
	}

	past := paginate(fused, 30, 10, len(fused))
	if past.Hits == nil || len(past.Hits) != 0 || past.Total != 25 {
		t.Errorf("page past end = %+v", past)
	}
}

func TestHitTotal(t *testing.T) {
	lexical := result.NewCandidateList(retriever.Lexical, 5000, result.Candidate{ID: "a"}, result.Candidate{ID: "b"})
	nested := result.NewCandidateList(retriever.Nested, 40, result.Candidate{ID: "c"})

	tests := []struct {
		name  string
		lists []result.CandidateList
		fused int
		want  int
	}{
		{"largest branch total", []result.CandidateList{lexical, nested}, 3, 5000},
		{"fused count when branches are exhaustive", []result.CandidateList{
			candidates(retriever.Lexical, "a", "b"), candidates(retriever.Nested, "c"),
		}, 3, 3},
		{"no branches", nil, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hitTotal(tt.lists, tt.fused); got != tt.want {
				t.Errorf("hitTotal() = %d, want %d", got, tt.want)
			}
		})
	}
}
