package request

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/schemalabz/opencouncil-sub005/internal/domain"
)

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }

func TestNew_Defaults(t *testing.T) {
	r, err := New(Params{Query: "  ανακύκλωση  "}, DefaultDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "ανακύκλωση" {
		t.Errorf("Query() = %q", r.Query())
	}
	cfg := r.Config()
	if cfg.Size != DefaultSize {
		t.Errorf("Size = %d, want %d", cfg.Size, DefaultSize)
	}
	if cfg.From != 0 {
		t.Errorf("From = %d", cfg.From)
	}
	if cfg.RankWindowSize != DefaultRankWindowSize {
		t.Errorf("RankWindowSize = %d", cfg.RankWindowSize)
	}
	if cfg.RankConstant != DefaultRankConstant {
		t.Errorf("RankConstant = %d", cfg.RankConstant)
	}
	if cfg.EnableSemantic {
		t.Error("EnableSemantic = true by default")
	}
	if !cfg.InnerHits {
		t.Error("InnerHits = false by default")
	}
	if r.CityIDs() != nil || r.PersonIDs() != nil || r.DateRange() != nil || r.Geo() != nil {
		t.Error("absent facets should be nil")
	}
}

func TestNew_ConfigDefaultsFromSettings(t *testing.T) {
	r, err := New(Params{Query: "q"}, Defaults{Size: 20, RankWindowSize: 50, RankConstant: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := r.Config()
	if cfg.Size != 20 || cfg.RankWindowSize != 50 || cfg.RankConstant != 10 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestNew_WindowDefaultCoversSize(t *testing.T) {
	r, err := New(Params{Query: "q", Size: intPtr(80)}, Defaults{RankWindowSize: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Config().RankWindowSize != 80 {
		t.Errorf("RankWindowSize = %d, want 80", r.Config().RankWindowSize)
	}
}

func TestNew_ExplicitValues(t *testing.T) {
	r, err := New(Params{
		Query:          "bike lanes",
		CityIDs:        []string{"chania", "athens"},
		PersonIDs:      []string{"p1"},
		PartyIDs:       []string{"party-1"},
		TopicIDs:       []string{"t1"},
		EnableSemantic: true,
		Size:           intPtr(5),
		From:           10,
		RankWindowSize: intPtr(200),
		RankConstant:   intPtr(1),
		InnerHits:      boolPtr(false),
	}, DefaultDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := r.Config()
	if !cfg.EnableSemantic || cfg.Size != 5 || cfg.From != 10 || cfg.RankWindowSize != 200 || cfg.RankConstant != 1 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.InnerHits {
		t.Error("InnerHits = true, want false")
	}
	if len(r.CityIDs()) != 2 || r.PersonIDs()[0] != "p1" || r.PartyIDs()[0] != "party-1" || r.TopicIDs()[0] != "t1" {
		t.Error("facets not carried through")
	}
}

func TestNew_DeduplicatesIDs(t *testing.T) {
	r, err := New(Params{Query: "q", CityIDs: []string{"a", " b ", "a", "b"}}, DefaultDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := r.CityIDs()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("CityIDs() = %v", got)
	}
}

func TestNew_Geo(t *testing.T) {
	r, err := New(Params{Query: "q", Geo: &GeoParams{Lat: 35.51, Lon: 24.02, RadiusKm: 3}}, DefaultDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Geo() == nil || r.Geo().Km != 3 || r.Geo().Center.Lat != 35.51 {
		t.Errorf("Geo() = %+v", r.Geo())
	}
}

func TestDateRange_Bounds(t *testing.T) {
	dr := DateRange{
		Start: time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	start, end := dr.Bounds()
	if !start.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
}

func TestNew_SingleDayRange(t *testing.T) {
	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	r, err := New(Params{Query: "q", DateRange: &DateRange{Start: day, End: day}}, DefaultDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.DateRange() == nil {
		t.Fatal("DateRange() = nil")
	}
}

func TestNew_Invalid(t *testing.T) {
	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	manyIDs := make([]string, MaxIDsPerFacet+1)
	for i := range manyIDs {
		manyIDs[i] = strings.Repeat("x", i+1)
	}

	tests := []struct {
		name    string
		params  Params
		wantErr string
	}{
		{"empty query", Params{Query: ""}, "query is required"},
		{"blank query", Params{Query: "   "}, "query is required"},
		{"query too long", Params{Query: strings.Repeat("α", MaxQueryLength+1)}, "query too long"},
		{"negative size", Params{Query: "q", Size: intPtr(-1)}, "size must be"},
		{"size too large", Params{Query: "q", Size: intPtr(MaxSize + 1)}, "size must be"},
		{"negative from", Params{Query: "q", From: -1}, "from must not"},
		{"window too large", Params{Query: "q", RankWindowSize: intPtr(MaxRankWindowSize + 1)}, "rankWindowSize must be"},
		{"window below size", Params{Query: "q", Size: intPtr(20), RankWindowSize: intPtr(10)}, "must be >= size"},
		{"zero size", Params{Query: "q", Size: intPtr(0)}, "size must be"},
		{"zero window", Params{Query: "q", RankWindowSize: intPtr(0)}, "rankWindowSize must be"},
		{"zero rank constant", Params{Query: "q", RankConstant: intPtr(0)}, "rankConstant"},
		{"negative rank constant", Params{Query: "q", RankConstant: intPtr(-5)}, "rankConstant"},
		{"empty id", Params{Query: "q", PersonIDs: []string{"p1", ""}}, "empty id"},
		{"too many ids", Params{Query: "q", TopicIDs: manyIDs}, "too many topicIds"},
		{"reversed dates", Params{Query: "q", DateRange: &DateRange{Start: day, End: day.AddDate(0, 0, -1)}}, "start must not be after end"},
		{"open date range", Params{Query: "q", DateRange: &DateRange{Start: day}}, "both start and end"},
		{"bad latitude", Params{Query: "q", Geo: &GeoParams{Lat: 91, Lon: 0, RadiusKm: 1}}, "geo"},
		{"zero radius", Params{Query: "q", Geo: &GeoParams{Lat: 35, Lon: 24, RadiusKm: 0}}, "geo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.params, DefaultDefaults())
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("error %v does not wrap ErrInvalidRequest", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestNew_QueryLengthCountsRunes(t *testing.T) {
	// Greek letters are two bytes each; the limit is in characters.
	q := strings.Repeat("α", MaxQueryLength)
	if _, err := New(Params{Query: q}, DefaultDefaults()); err != nil {
		t.Fatalf("unexpected error at exactly max length: %v", err)
	}
}
