package request

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/schemalabz/opencouncil-sub005/internal/domain"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/geo"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum query length in characters.
	MaxQueryLength        = 1024
	DefaultSize           = 10
	MaxSize               = 100
	DefaultRankWindowSize = 100
	MaxRankWindowSize     = 1000
	DefaultRankConstant   = 60
	// MaxIDsPerFacet bounds every id set (cities, persons, parties, topics).
	MaxIDsPerFacet = 64
)

// Defaults are the config-level fallbacks for unset request parameters.
type Defaults struct {
	Size           int
	RankWindowSize int
	RankConstant   int
}

// DefaultDefaults returns the built-in fallbacks.
func DefaultDefaults() Defaults {
	return Defaults{
		Size:           DefaultSize,
		RankWindowSize: DefaultRankWindowSize,
		RankConstant:   DefaultRankConstant,
	}
}

// DateRange is an inclusive range of calendar days in UTC.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Bounds returns the first and last instant covered by the range.
func (d DateRange) Bounds() (time.Time, time.Time) {
	start := truncateDay(d.Start)
	end := truncateDay(d.End).Add(24*time.Hour - time.Second)
	return start, end
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// GeoParams is the raw geographic facet.
type GeoParams struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
}

// Params is the unvalidated search input. Nil pointers select defaults; a set
// pointer is validated as given, zero included.
type Params struct {
	Query     string
	CityIDs   []string
	PersonIDs []string
	PartyIDs  []string
	TopicIDs  []string
	DateRange *DateRange
	Geo       *GeoParams

	EnableSemantic bool
	Size           *int
	From           int
	RankWindowSize *int
	RankConstant   *int
	// InnerHits defaults to true when nil.
	InnerHits *bool
}

// Config is the validated fusion and paging block.
type Config struct {
	EnableSemantic bool
	Size           int
	From           int
	RankWindowSize int
	RankConstant   int
	InnerHits      bool
}

// Request is a validated search query.
type Request struct {
	query     string
	cityIDs   []string
	personIDs []string
	partyIDs  []string
	topicIDs  []string
	dateRange *DateRange
	geo       *geo.Radius
	cfg       Config
}

// New validates and normalizes search parameters.
// Violations wrap domain.ErrInvalidRequest.
func New(p Params, d Defaults) (Request, error) {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return Request{}, invalid("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return Request{}, invalid("query too long (max %d chars)", MaxQueryLength)
	}

	r := Request{query: query}
	var err error
	if r.cityIDs, err = normalizeIDs("cityIds", p.CityIDs); err != nil {
		return Request{}, err
	}
	if r.personIDs, err = normalizeIDs("personIds", p.PersonIDs); err != nil {
		return Request{}, err
	}
	if r.partyIDs, err = normalizeIDs("partyIds", p.PartyIDs); err != nil {
		return Request{}, err
	}
	if r.topicIDs, err = normalizeIDs("topicIds", p.TopicIDs); err != nil {
		return Request{}, err
	}

	if p.DateRange != nil {
		if p.DateRange.Start.IsZero() || p.DateRange.End.IsZero() {
			return Request{}, invalid("dateRange requires both start and end")
		}
		if truncateDay(p.DateRange.Start).After(truncateDay(p.DateRange.End)) {
			return Request{}, invalid("dateRange start must not be after end")
		}
		dr := *p.DateRange
		r.dateRange = &dr
	}

	if p.Geo != nil {
		radius, gerr := geo.NewRadius(p.Geo.Lat, p.Geo.Lon, p.Geo.RadiusKm)
		if gerr != nil {
			return Request{}, invalid("geo: %v", gerr)
		}
		r.geo = &radius
	}

	cfg, err := newConfig(p, d)
	if err != nil {
		return Request{}, err
	}
	r.cfg = cfg
	return r, nil
}

func newConfig(p Params, d Defaults) (Config, error) {
	if d.Size <= 0 {
		d.Size = DefaultSize
	}
	if d.RankWindowSize <= 0 {
		d.RankWindowSize = DefaultRankWindowSize
	}
	if d.RankConstant <= 0 {
		d.RankConstant = DefaultRankConstant
	}

	size := min(d.Size, MaxSize)
	if p.Size != nil {
		size = *p.Size
		if size < 1 || size > MaxSize {
			return Config{}, invalid("size must be between 1 and %d", MaxSize)
		}
	}
	if p.From < 0 {
		return Config{}, invalid("from must not be negative")
	}

	window := max(min(d.RankWindowSize, MaxRankWindowSize), size)
	if p.RankWindowSize != nil {
		window = *p.RankWindowSize
		if window < 1 || window > MaxRankWindowSize {
			return Config{}, invalid("rankWindowSize must be between 1 and %d", MaxRankWindowSize)
		}
	}
	if window < size {
		return Config{}, invalid("rankWindowSize (%d) must be >= size (%d)", window, size)
	}

	k := d.RankConstant
	if p.RankConstant != nil {
		k = *p.RankConstant
		if k < 1 {
			return Config{}, invalid("rankConstant must be >= 1")
		}
	}

	innerHits := true
	if p.InnerHits != nil {
		innerHits = *p.InnerHits
	}

	return Config{
		EnableSemantic: p.EnableSemantic,
		Size:           size,
		From:           p.From,
		RankWindowSize: window,
		RankConstant:   k,
		InnerHits:      innerHits,
	}, nil
}

// normalizeIDs trims, rejects blanks and drops duplicates keeping first occurrence.
func normalizeIDs(name string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, invalid("%s contains an empty id", name)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) > MaxIDsPerFacet {
		return nil, invalid("too many %s (max %d)", name, MaxIDsPerFacet)
	}
	return out, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Query returns the trimmed query text.
func (r *Request) Query() string { return r.query }

// CityIDs returns the city facet.
func (r *Request) CityIDs() []string { return r.cityIDs }

// PersonIDs returns the person facet (introducer or speaker).
func (r *Request) PersonIDs() []string { return r.personIDs }

// PartyIDs returns the party facet.
func (r *Request) PartyIDs() []string { return r.partyIDs }

// TopicIDs returns the topic facet.
func (r *Request) TopicIDs() []string { return r.topicIDs }

// DateRange returns the meeting date facet, nil when unconstrained.
func (r *Request) DateRange() *DateRange { return r.dateRange }

// Geo returns the radius facet, nil when unconstrained.
func (r *Request) Geo() *geo.Radius { return r.geo }

// Config returns the fusion and paging block.
func (r *Request) Config() Config { return r.cfg }
