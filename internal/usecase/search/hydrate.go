package search

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/schemalabz/opencouncil-sub005/internal/domain"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/geo"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/result"
	domsubject "github.com/schemalabz/opencouncil-sub005/internal/domain/subject"
)

// DefaultHydrationConcurrency bounds parallel store loads per request.
const DefaultHydrationConcurrency = 8

// Hydrator loads full subject records for a page of fused hits.
type Hydrator struct {
	store       SubjectStore
	concurrency int
	graph       domsubject.Graph
}

// NewHydrator creates a hydrator loading the full association graph.
func NewHydrator(store SubjectStore, concurrency int) *Hydrator {
	if concurrency <= 0 {
		concurrency = DefaultHydrationConcurrency
	}
	return &Hydrator{store: store, concurrency: concurrency, graph: domsubject.FullGraph()}
}

// HydrateOptions controls how fused data is attached to records.
type HydrateOptions struct {
	// InnerHits attaches matched segment ids when set.
	InnerHits bool
	// Origin, when set, annotates each record with its distance in km.
	Origin *geo.Point
}

// Hydrate loads one record per hit and returns them in hit order.
// A hit with no store row fails the whole call with a DataConsistencyError.
func (h *Hydrator) Hydrate(
	ctx context.Context, hits []result.Fused, opts HydrateOptions,
) ([]*domsubject.Record, error) {
	records := make([]*domsubject.Record, len(hits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)
	for i, hit := range hits {
		g.Go(func() error {
			rec, err := h.load(gctx, hit, opts)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func (h *Hydrator) load(ctx context.Context, hit result.Fused, opts HydrateOptions) (*domsubject.Record, error) {
	rec, err := h.store.LoadSubject(ctx, hit.ID, h.graph)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewDataConsistency(hit.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("hydrate subject %s: %w", hit.ID, err)
	}

	if rec.Location != nil {
		coords, err := h.store.LocationCoordinates(ctx, rec.Location.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("hydrate subject %s location: %w", hit.ID, err)
		}
		rec.Location.Coordinates = coords
	}

	rec.Score = hit.Score
	rec.MatchedSegmentIDs = []string{}
	if opts.InnerHits && len(hit.InnerHitIDs) > 0 {
		rec.MatchedSegmentIDs = append(rec.MatchedSegmentIDs, hit.InnerHitIDs...)
	}
	if rec.Segments == nil {
		rec.Segments = []domsubject.Segment{}
	}

	if opts.Origin != nil && rec.Location != nil && rec.Location.Coordinates != nil {
		d := geo.HaversineKm(*opts.Origin, geo.Point{
			Lat: rec.Location.Coordinates.Lat,
			Lon: rec.Location.Coordinates.Lon,
		})
		rec.DistanceKm = &d
	}
	return rec, nil
}
