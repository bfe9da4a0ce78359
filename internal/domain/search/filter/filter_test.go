package filter

import (
	"strings"
	"testing"

	"github.com/schemalabz/opencouncil-sub005/internal/domain/geo"
)

func floatPtr(f float64) *float64 { return &f }

// --- Range tests ---

func TestNewRangeFilter_Valid(t *testing.T) {
	tests := []struct {
		name             string
		gt, gte, lt, lte *float64
	}{
		{"gt only", floatPtr(1), nil, nil, nil},
		{"gte only", nil, floatPtr(0), nil, nil},
		{"lt only", nil, nil, floatPtr(10), nil},
		{"lte only", nil, nil, nil, floatPtr(100)},
		{"gte+lte", nil, floatPtr(0), nil, floatPtr(10)},
		{"gt+lt", floatPtr(0), nil, floatPtr(10), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRangeFilter(tt.gt, tt.gte, tt.lt, tt.lte)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (r.GT() == nil) != (tt.gt == nil) {
				t.Error("GT() mismatch")
			}
			if (r.GTE() == nil) != (tt.gte == nil) {
				t.Error("GTE() mismatch")
			}
			if (r.LT() == nil) != (tt.lt == nil) {
				t.Error("LT() mismatch")
			}
			if (r.LTE() == nil) != (tt.lte == nil) {
				t.Error("LTE() mismatch")
			}
		})
	}
}

func TestNewRangeFilter_Invalid(t *testing.T) {
	tests := []struct {
		name             string
		gt, gte, lt, lte *float64
		wantErr          string
	}{
		{"no boundary", nil, nil, nil, nil, "at least one"},
		{"gt and gte", floatPtr(1), floatPtr(1), nil, nil, "gt and gte"},
		{"lt and lte", nil, nil, floatPtr(1), floatPtr(1), "lt and lte"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRangeFilter(tt.gt, tt.gte, tt.lt, tt.lte)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestRange_Contains(t *testing.T) {
	inclusive, _ := NewRangeFilter(nil, floatPtr(10), nil, floatPtr(20))
	exclusive, _ := NewRangeFilter(floatPtr(10), nil, floatPtr(20), nil)

	tests := []struct {
		name string
		r    Range
		v    float64
		want bool
	}{
		{"inclusive lower edge", inclusive, 10, true},
		{"inclusive upper edge", inclusive, 20, true},
		{"inclusive below", inclusive, 9.99, false},
		{"inclusive above", inclusive, 20.01, false},
		{"exclusive lower edge", exclusive, 10, false},
		{"exclusive upper edge", exclusive, 20, false},
		{"exclusive inside", exclusive, 15, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Contains(tt.v); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

// --- Condition tests ---

func TestNewTerms_Valid(t *testing.T) {
	c, err := NewTerms(FieldCityID, "chania", "athens")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Kind() != KindTerms {
		t.Errorf("Kind() = %v", c.Kind())
	}
	if c.Key() != FieldCityID {
		t.Errorf("Key() = %q", c.Key())
	}
	if len(c.Values()) != 2 || c.Values()[0] != "chania" {
		t.Errorf("Values() = %v", c.Values())
	}
	if c.Nested() {
		t.Error("Nested() = true for flat condition")
	}
	if c.Range() != nil || c.Radius() != nil {
		t.Error("terms condition carries a range or radius")
	}
}

func TestNewTerms_CopiesValues(t *testing.T) {
	vals := []string{"a", "b"}
	c, err := NewTerms(FieldTopicID, vals...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vals[0] = "z"
	if c.Values()[0] != "a" {
		t.Errorf("Values() aliased caller slice: %v", c.Values())
	}
}

func TestNewTerms_Invalid(t *testing.T) {
	tooMany := make([]string, MaxValuesPerCondition+1)
	for i := range tooMany {
		tooMany[i] = "v"
	}

	tests := []struct {
		name    string
		key     string
		values  []string
		wantErr string
	}{
		{"empty key", "", []string{"a"}, "key is required"},
		{"no values", FieldCityID, nil, "at least one value"},
		{"empty value", FieldCityID, []string{"a", ""}, "empty value"},
		{"too many values", FieldCityID, tooMany, "too many values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTerms(tt.key, tt.values...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewRange_Valid(t *testing.T) {
	r, _ := NewRangeFilter(nil, floatPtr(0), nil, floatPtr(100))
	c, err := NewRange(FieldMeetingDate, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Kind() != KindRange {
		t.Errorf("Kind() = %v", c.Kind())
	}
	if c.Range() == nil {
		t.Fatal("Range() should not be nil")
	}
	if len(c.Values()) != 0 {
		t.Error("Values() should be empty for range")
	}
}

func TestNewRange_EmptyKey(t *testing.T) {
	r, _ := NewRangeFilter(floatPtr(0), nil, nil, nil)
	if _, err := NewRange("", r); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewGeoRadius(t *testing.T) {
	rad, err := geo.NewRadius(35.51, 24.02, 5)
	if err != nil {
		t.Fatalf("NewRadius: %v", err)
	}
	c, err := NewGeoRadius(FieldLocation, rad)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Kind() != KindGeo {
		t.Errorf("Kind() = %v", c.Kind())
	}
	if c.Radius() == nil || c.Radius().Km != 5 {
		t.Errorf("Radius() = %+v", c.Radius())
	}

	if _, err := NewGeoRadius(FieldLocation, geo.Radius{}); err == nil {
		t.Error("expected error for zero radius")
	}
	if _, err := NewGeoRadius("", rad); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestCondition_AsNested(t *testing.T) {
	flat, _ := NewTerms(FieldSpeakerID, "p1")
	nested := flat.AsNested()
	if !nested.Nested() {
		t.Error("AsNested().Nested() = false")
	}
	if flat.Nested() {
		t.Error("AsNested mutated the receiver")
	}
}

func TestKind_String(t *testing.T) {
	if KindTerms.String() != "terms" || KindRange.String() != "range" || KindGeo.String() != "geo" {
		t.Error("unexpected kind names")
	}
	if Kind(0).String() != "unknown" {
		t.Errorf("Kind(0) = %q", Kind(0).String())
	}
}

// --- Group tests ---

func TestNewGroup(t *testing.T) {
	if _, err := NewGroup(); err == nil {
		t.Fatal("expected error for empty group")
	}

	c, _ := NewTerms(FieldCityID, "a")
	conds := make([]Condition, MaxConditionsPerGroup+1)
	for i := range conds {
		conds[i] = c
	}
	if _, err := NewGroup(conds...); err == nil {
		t.Fatal("expected error for too many conditions")
	}
	if _, err := NewGroup(conds[:MaxConditionsPerGroup]...); err != nil {
		t.Fatalf("unexpected error at max conditions: %v", err)
	}
}

func TestGroup_FlatAndNested(t *testing.T) {
	introducer, _ := NewTerms(FieldIntroducerID, "p1")
	speaker, _ := NewTerms(FieldSpeakerID, "p1")
	g, err := NewGroup(introducer, speaker.AsNested())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Conditions()) != 2 {
		t.Errorf("Conditions() len = %d", len(g.Conditions()))
	}
	if flat := g.Flat(); len(flat) != 1 || flat[0].Key() != FieldIntroducerID {
		t.Errorf("Flat() = %+v", flat)
	}
	if nested := g.Nested(); len(nested) != 1 || nested[0].Key() != FieldSpeakerID {
		t.Errorf("Nested() = %+v", nested)
	}
}

// --- Expression tests ---

func TestNewExpression_Empty(t *testing.T) {
	expr, err := NewExpression()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !expr.IsEmpty() {
		t.Error("IsEmpty() = false for empty expression")
	}
	if expr.HasNested() {
		t.Error("HasNested() = true for empty expression")
	}
}

func TestNewExpression_Valid(t *testing.T) {
	city, _ := NewTerms(FieldCityID, "a", "b")
	cityGroup, _ := NewGroup(city)
	speaker, _ := NewTerms(FieldSpeakerID, "p")
	intro, _ := NewTerms(FieldIntroducerID, "p")
	personGroup, _ := NewGroup(intro, speaker.AsNested())

	expr, err := NewExpression(cityGroup, personGroup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(expr.Groups()) != 2 {
		t.Errorf("Groups() len = %d", len(expr.Groups()))
	}
	if expr.IsEmpty() {
		t.Error("IsEmpty() = true")
	}
	if !expr.HasNested() {
		t.Error("HasNested() = false")
	}
}

func TestNewExpression_Invalid(t *testing.T) {
	if _, err := NewExpression(Group{}); err == nil {
		t.Error("expected error for zero-value group")
	}

	c, _ := NewTerms(FieldCityID, "a")
	g, _ := NewGroup(c)
	groups := make([]Group, MaxGroups+1)
	for i := range groups {
		groups[i] = g
	}
	_, err := NewExpression(groups...)
	if err == nil {
		t.Fatal("expected error for too many groups")
	}
	if !strings.Contains(err.Error(), "too many filter groups") {
		t.Errorf("error = %q", err)
	}
}

func TestExpression_MapKeys(t *testing.T) {
	intro, err := NewTerms(FieldIntroducerID, "p1")
	if err != nil {
		t.Fatal(err)
	}
	speaker, err := NewTerms(FieldSpeakerID, "p1")
	if err != nil {
		t.Fatal(err)
	}
	g, err := NewGroup(intro, speaker.AsNested())
	if err != nil {
		t.Fatal(err)
	}
	expr, err := NewExpression(g)
	if err != nil {
		t.Fatal(err)
	}

	mapped := expr.MapKeys(func(key string, nested bool) string {
		if nested {
			return "speaker_ids"
		}
		return key
	})

	conds := mapped.Groups()[0].Conditions()
	if conds[0].Key() != FieldIntroducerID {
		t.Errorf("flat key = %q, want %q", conds[0].Key(), FieldIntroducerID)
	}
	if conds[1].Key() != "speaker_ids" || !conds[1].Nested() {
		t.Errorf("nested key = %q nested=%v", conds[1].Key(), conds[1].Nested())
	}
	if expr.Groups()[0].Conditions()[1].Key() != FieldSpeakerID {
		t.Error("MapKeys must not modify the source expression")
	}
}

func TestExpression_MapKeysEmpty(t *testing.T) {
	var e Expression
	if !e.MapKeys(func(k string, _ bool) string { return "x" + k }).IsEmpty() {
		t.Error("expected empty expression")
	}
}
