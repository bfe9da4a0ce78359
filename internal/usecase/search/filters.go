package search

import (
	"fmt"

	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/filter"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/request"
)

// BuildFilters turns the request facets into the expression every branch applies.
// Values inside a facet are OR-ed and facets are AND-ed. The person facet
// matches the introducer or any segment speaker.
func BuildFilters(req *request.Request) (filter.Expression, error) {
	var groups []filter.Group

	add := func(conds ...filter.Condition) error {
		g, err := filter.NewGroup(conds...)
		if err != nil {
			return err
		}
		groups = append(groups, g)
		return nil
	}

	if ids := req.CityIDs(); len(ids) > 0 {
		c, err := filter.NewTerms(filter.FieldCityID, ids...)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("city facet: %w", err)
		}
		if err := add(c); err != nil {
			return filter.Expression{}, fmt.Errorf("city facet: %w", err)
		}
	}

	if ids := req.PersonIDs(); len(ids) > 0 {
		introducer, err := filter.NewTerms(filter.FieldIntroducerID, ids...)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("person facet: %w", err)
		}
		speaker, err := filter.NewTerms(filter.FieldSpeakerID, ids...)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("person facet: %w", err)
		}
		if err := add(introducer, speaker.AsNested()); err != nil {
			return filter.Expression{}, fmt.Errorf("person facet: %w", err)
		}
	}

	if ids := req.PartyIDs(); len(ids) > 0 {
		c, err := filter.NewTerms(filter.FieldPartyIDs, ids...)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("party facet: %w", err)
		}
		if err := add(c); err != nil {
			return filter.Expression{}, fmt.Errorf("party facet: %w", err)
		}
	}

	if ids := req.TopicIDs(); len(ids) > 0 {
		c, err := filter.NewTerms(filter.FieldTopicID, ids...)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("topic facet: %w", err)
		}
		if err := add(c); err != nil {
			return filter.Expression{}, fmt.Errorf("topic facet: %w", err)
		}
	}

	if dr := req.DateRange(); dr != nil {
		start, end := dr.Bounds()
		gte := float64(start.Unix())
		lte := float64(end.Unix())
		r, err := filter.NewRangeFilter(nil, &gte, nil, &lte)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("date facet: %w", err)
		}
		c, err := filter.NewRange(filter.FieldMeetingDate, r)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("date facet: %w", err)
		}
		if err := add(c); err != nil {
			return filter.Expression{}, fmt.Errorf("date facet: %w", err)
		}
	}

	if radius := req.Geo(); radius != nil {
		c, err := filter.NewGeoRadius(filter.FieldLocation, *radius)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("geo facet: %w", err)
		}
		if err := add(c); err != nil {
			return filter.Expression{}, fmt.Errorf("geo facet: %w", err)
		}
	}

	if len(groups) == 0 {
		return filter.Expression{}, nil
	}
	return filter.NewExpression(groups...)
}
