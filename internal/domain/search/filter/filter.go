package filter

import (
	"fmt"

	"github.com/schemalabz/opencouncil-sub005/internal/domain/geo"
)

// Filter limits.
const (
	// MaxGroups is the maximum number of AND-ed groups in one expression.
	MaxGroups = 16
	// MaxConditionsPerGroup is the maximum number of OR-ed conditions per group.
	MaxConditionsPerGroup = 8
	// MaxValuesPerCondition is the maximum number of values in one membership test.
	MaxValuesPerCondition = 64
)

// Logical facet fields shared by every index backend.
const (
	FieldCityID       = "city_id"
	FieldTopicID      = "topic_id"
	FieldPartyIDs     = "party_ids"
	FieldIntroducerID = "introducer_id"
	FieldMeetingDate  = "meeting_date"
	FieldLocation     = "location"
	// FieldSpeakerID is evaluated against segment sub-documents.
	FieldSpeakerID = "speaker_id"
)

// Kind tells which payload a Condition carries.
type Kind int

// Condition kinds.
const (
	KindTerms Kind = iota + 1
	KindRange
	KindGeo
)

func (k Kind) String() string {
	switch k {
	case KindTerms:
		return "terms"
	case KindRange:
		return "range"
	case KindGeo:
		return "geo"
	default:
		return "unknown"
	}
}

// Expression is a conjunction of groups. Every group must match.
type Expression struct {
	groups []Group
}

// NewExpression validates and creates a filter Expression.
func NewExpression(groups ...Group) (Expression, error) {
	if len(groups) > MaxGroups {
		return Expression{}, fmt.Errorf("too many filter groups (max %d)", MaxGroups)
	}
	for i, g := range groups {
		if len(g.conds) == 0 {
			return Expression{}, fmt.Errorf("filter group %d is empty", i)
		}
	}
	return Expression{groups: groups}, nil
}

// Groups returns the AND-ed groups.
func (e Expression) Groups() []Group { return e.groups }

// IsEmpty reports whether the expression constrains nothing.
func (e Expression) IsEmpty() bool { return len(e.groups) == 0 }

// HasNested reports whether any condition targets segment sub-documents.
func (e Expression) HasNested() bool {
	for _, g := range e.groups {
		for _, c := range g.conds {
			if c.nested {
				return true
			}
		}
	}
	return false
}

// Group is a disjunction: at least one condition must match.
type Group struct {
	conds []Condition
}

// NewGroup validates and creates a Group.
func NewGroup(conds ...Condition) (Group, error) {
	if len(conds) == 0 {
		return Group{}, fmt.Errorf("filter group needs at least one condition")
	}
	if len(conds) > MaxConditionsPerGroup {
		return Group{}, fmt.Errorf("too many conditions in group (max %d)", MaxConditionsPerGroup)
	}
	return Group{conds: conds}, nil
}

// Conditions returns the OR-ed conditions.
func (g Group) Conditions() []Condition { return g.conds }

// Flat returns the conditions evaluated against the parent document.
func (g Group) Flat() []Condition {
	out := make([]Condition, 0, len(g.conds))
	for _, c := range g.conds {
		if !c.nested {
			out = append(out, c)
		}
	}
	return out
}

// Nested returns the conditions evaluated against segment sub-documents.
func (g Group) Nested() []Condition {
	var out []Condition
	for _, c := range g.conds {
		if c.nested {
			out = append(out, c)
		}
	}
	return out
}

// Condition is a single clause: a membership test, a numeric range or a geo radius.
type Condition struct {
	kind      Kind
	key       string
	values    []string
	rangeExpr *Range
	radius    *geo.Radius
	nested    bool
}

// NewTerms creates a membership condition: the field matches any of values.
func NewTerms(key string, values ...string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("at least one value is required for key %q", key)
	}
	if len(values) > MaxValuesPerCondition {
		return Condition{}, fmt.Errorf("too many values for key %q (max %d)", key, MaxValuesPerCondition)
	}
	for _, v := range values {
		if v == "" {
			return Condition{}, fmt.Errorf("empty value for key %q", key)
		}
	}
	vals := make([]string, len(values))
	copy(vals, values)
	return Condition{kind: KindTerms, key: key, values: vals}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{kind: KindRange, key: key, rangeExpr: &r}, nil
}

// NewGeoRadius creates a distance condition against a point field.
func NewGeoRadius(key string, r geo.Radius) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if r.Km <= 0 {
		return Condition{}, fmt.Errorf("radius must be positive for key %q", key)
	}
	return Condition{kind: KindGeo, key: key, radius: &r}, nil
}

// AsNested returns a copy of the condition evaluated against segment sub-documents.
func (c Condition) AsNested() Condition {
	c.nested = true
	return c
}

// Kind returns the condition kind.
func (c Condition) Kind() Kind { return c.kind }

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Values returns the accepted values of a membership condition.
func (c Condition) Values() []string { return c.values }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// Radius returns the geo radius.
func (c Condition) Radius() *geo.Radius { return c.radius }

// Nested reports whether the condition targets segment sub-documents.
func (c Condition) Nested() bool { return c.nested }

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }

// Contains reports whether v satisfies every boundary.
func (r Range) Contains(v float64) bool {
	if r.gt != nil && v <= *r.gt {
		return false
	}
	if r.gte != nil && v < *r.gte {
		return false
	}
	if r.lt != nil && v >= *r.lt {
		return false
	}
	if r.lte != nil && v > *r.lte {
		return false
	}
	return true
}

// MapKeys returns a copy of the expression with every condition key replaced by fn.
// Backends use it to translate logical facet names into physical index fields.
func (e Expression) MapKeys(fn func(key string, nested bool) string) Expression {
	if e.IsEmpty() {
		return e
	}
	groups := make([]Group, len(e.groups))
	for i, g := range e.groups {
		conds := make([]Condition, len(g.conds))
		for j, c := range g.conds {
			c.key = fn(c.key, c.nested)
			conds[j] = c
		}
		groups[i] = Group{conds: conds}
	}
	return Expression{groups: groups}
}
