package search

import (
	"slices"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	domsubject "github.com/schemalabz/opencouncil-sub005/internal/domain/subject"
	"github.com/schemalabz/opencouncil-sub005/internal/metrics"
)

func segmentIDs(segs []domsubject.Segment) []string {
	ids := make([]string, len(segs))
	for i, s := range segs {
		ids[i] = s.ID
	}
	return ids
}

func segmentFixture() *domsubject.Record {
	noRoles := &domsubject.Person{ID: "p2", Name: "Γιώργος", Roles: []domsubject.Role{}}
	return &domsubject.Record{
		ID:    "s1",
		Score: 0.5,
		Segments: []domsubject.Segment{
			{ID: "keep", Speaker: councillor, Text: longText("ανακύκλωση")},
			{ID: "short", Speaker: councillor, Text: "Συμφωνώ."},
			{ID: "padded", Speaker: councillor, Text: "   " + strings.Repeat("α", 99) + "   "},
			{ID: "anonymous", Text: longText("κάδοι")},
			{ID: "no-roles", Speaker: noRoles, Text: longText("πλατεία")},
			{ID: "exact", Speaker: councillor, Text: strings.Repeat("β", 100)},
		},
	}
}

func TestSegmentFilter_Apply(t *testing.T) {
	rec := segmentFixture()
	short := testutil.ToFloat64(metrics.SearchSegmentsDroppedTotal.WithLabelValues(dropShortText))

	dropped := NewSegmentFilter(0).Apply(rec)
	if dropped != 4 {
		t.Errorf("dropped = %d, want 4", dropped)
	}
	if got := segmentIDs(rec.Segments); !slices.Equal(got, []string{"keep", "exact"}) {
		t.Errorf("kept = %v", got)
	}
	if rec.Score != 0.5 {
		t.Errorf("score changed to %v", rec.Score)
	}
	if got := testutil.ToFloat64(metrics.SearchSegmentsDroppedTotal.WithLabelValues(dropShortText)); got != short+2 {
		t.Errorf("short_text drops = %v, want %v", got, short+2)
	}
}

func TestSegmentFilter_TrimsMatchedIDs(t *testing.T) {
	rec := segmentFixture()
	rec.MatchedSegmentIDs = []string{"short", "keep", "no-roles", "exact"}

	NewSegmentFilter(0).Apply(rec)
	if !slices.Equal(rec.MatchedSegmentIDs, []string{"keep", "exact"}) {
		t.Errorf("matched = %v, want [keep exact]", rec.MatchedSegmentIDs)
	}

	rec = segmentFixture()
	rec.MatchedSegmentIDs = []string{"short"}
	NewSegmentFilter(0).Apply(rec)
	if rec.MatchedSegmentIDs == nil || len(rec.MatchedSegmentIDs) != 0 {
		t.Errorf("matched = %#v, want empty non-nil", rec.MatchedSegmentIDs)
	}
}

func TestSegmentFilter_Idempotent(t *testing.T) {
	f := NewSegmentFilter(DefaultMinSegmentTextLength)
	rec := segmentFixture()
	f.Apply(rec)
	once := slices.Clone(rec.Segments)

	if dropped := f.Apply(rec); dropped != 0 {
		t.Errorf("second pass dropped %d", dropped)
	}
	if !slices.EqualFunc(once, rec.Segments, func(a, b domsubject.Segment) bool {
		return a.ID == b.ID && a.Text == b.Text
	}) {
		t.Errorf("second pass changed segments: %v -> %v", segmentIDs(once), segmentIDs(rec.Segments))
	}
}

func TestSegmentFilter_CustomMinimum(t *testing.T) {
	rec := &domsubject.Record{Segments: []domsubject.Segment{
		{ID: "a", Speaker: councillor, Text: "δέκα γράμματα"},
	}}
	NewSegmentFilter(5).Apply(rec)
	if len(rec.Segments) != 1 {
		t.Errorf("expected segment to survive a 5-char minimum")
	}
}

func TestSegmentFilter_NoSegments(t *testing.T) {
	rec := &domsubject.Record{Segments: []domsubject.Segment{}}
	if dropped := NewSegmentFilter(0).Apply(rec); dropped != 0 {
		t.Errorf("dropped = %d", dropped)
	}
	if rec.Segments == nil {
		t.Error("empty segment list became nil")
	}
}
