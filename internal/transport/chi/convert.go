package chi

import (
	"fmt"

	"github.com/schemalabz/opencouncil-sub005/internal/domain"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/request"
)

func paramsFromBody(body SearchRequest) request.Params {
	p := request.Params{
		Query:     body.Query,
		CityIDs:   deref(body.CityIds),
		PersonIDs: deref(body.PersonIds),
		PartyIDs:  deref(body.PartyIds),
		TopicIDs:  deref(body.TopicIds),
	}
	if body.DateRange != nil {
		p.DateRange = &request.DateRange{
			Start: body.DateRange.Start.Time,
			End:   body.DateRange.End.Time,
		}
	}
	if body.Geo != nil {
		p.Geo = &request.GeoParams{
			Lat:      body.Geo.Lat,
			Lon:      body.Geo.Lon,
			RadiusKm: body.Geo.RadiusKm,
		}
	}
	if c := body.Config; c != nil {
		p.EnableSemantic = deref(c.EnableSemanticSearch)
		p.Size = c.Size
		p.From = deref(c.From)
		p.RankWindowSize = c.RankWindowSize
		p.RankConstant = c.RankConstant
		p.InnerHits = c.InnerHits
	}
	return p
}

// paramsFromQuery maps GET parameters. The date and geo facets are only
// accepted as complete sets.
func paramsFromQuery(q SearchParams) (request.Params, error) {
	p := request.Params{
		Query:          q.Query,
		CityIDs:        deref(q.CityIds),
		PersonIDs:      deref(q.PersonIds),
		PartyIDs:       deref(q.PartyIds),
		TopicIDs:       deref(q.TopicIds),
		EnableSemantic: deref(q.EnableSemanticSearch),
		Size:           q.Size,
		From:           deref(q.From),
		RankWindowSize: q.RankWindowSize,
		RankConstant:   q.RankConstant,
		InnerHits:      q.InnerHits,
	}

	switch {
	case q.DateStart != nil && q.DateEnd != nil:
		p.DateRange = &request.DateRange{Start: q.DateStart.Time, End: q.DateEnd.Time}
	case q.DateStart != nil || q.DateEnd != nil:
		return request.Params{}, fmt.Errorf("%w: dateStart and dateEnd must be given together", domain.ErrInvalidRequest)
	}

	switch n := countSet(q.Lat, q.Lon, q.RadiusKm); n {
	case 0:
	case 3:
		p.Geo = &request.GeoParams{Lat: *q.Lat, Lon: *q.Lon, RadiusKm: *q.RadiusKm}
	default:
		return request.Params{}, fmt.Errorf("%w: lat, lon and radiusKm must be given together", domain.ErrInvalidRequest)
	}
	return p, nil
}

func countSet(vals ...*float64) int {
	n := 0
	for _, v := range vals {
		if v != nil {
			n++
		}
	}
	return n
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
