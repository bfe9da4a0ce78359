// Package search answers council subject queries by fusing lexical, nested
// segment and optional semantic retrieval, then hydrating the fused page.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/schemalabz/opencouncil-sub005/internal/domain"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/geo"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/request"
	domsubject "github.com/schemalabz/opencouncil-sub005/internal/domain/subject"
	"github.com/schemalabz/opencouncil-sub005/internal/logger"
	"github.com/schemalabz/opencouncil-sub005/internal/metrics"
)

// Config tunes the service. Zero values select defaults.
type Config struct {
	Weights              Weights
	MinSegmentTextLength int
	HydrationConcurrency int
}

// Response is one page of hydrated subjects.
// Total is the index-reported match count before hydration: the larger of the
// biggest branch total and the distinct fused count. It does not move with
// the rank window.
type Response struct {
	Results []*domsubject.Record
	Total   int
}

// Service sequences filter building, retrieval, fusion, hydration and segment filtering.
type Service struct {
	retrievers *RetrieverSet
	hydrator   *Hydrator
	segments   SegmentFilter
}

// New creates a search service. embed can be nil; semantic requests then fail
// with domain.ErrSemanticSearchNotSupported.
func New(r Retriever, store SubjectStore, embed Embedder, cfg Config) *Service {
	return &Service{
		retrievers: NewRetrieverSet(r, embed, cfg.Weights),
		hydrator:   NewHydrator(store, cfg.HydrationConcurrency),
		segments:   NewSegmentFilter(cfg.MinSegmentTextLength),
	}
}

// Search runs one query end to end. Any stage failure fails the request.
func (s *Service) Search(ctx context.Context, req *request.Request) (*Response, error) {
	start := time.Now()
	resp, err := s.search(ctx, req)
	metrics.SearchRequestsTotal.WithLabelValues(outcome(err)).Inc()

	log := logger.FromContext(ctx)
	if errors.Is(err, domain.ErrDataConsistency) {
		log.Error("search index and subject store disagree",
			zap.String("kind", "data_consistency"),
			zap.Error(err),
		)
	}
	if err != nil {
		return nil, err
	}
	log.Debug("search completed",
		zap.Int("results", len(resp.Results)),
		zap.Int("total", resp.Total),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (s *Service) search(ctx context.Context, req *request.Request) (*Response, error) {
	cfg := req.Config()

	filters, err := BuildFilters(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	specs, err := s.retrievers.Specs(ctx, req.Query(), cfg.EnableSemantic)
	if err != nil {
		return nil, err
	}
	lists, err := s.retrievers.Retrieve(ctx, specs, filters, cfg.RankWindowSize)
	if err != nil {
		return nil, err
	}

	fused := fuseRRF(lists, cfg.RankWindowSize, cfg.RankConstant)
	metrics.SearchFusedCandidates.Observe(float64(len(fused)))
	page := paginate(fused, cfg.From, cfg.Size, hitTotal(lists, len(fused)))

	opts := HydrateOptions{InnerHits: cfg.InnerHits}
	if r := req.Geo(); r != nil {
		origin := geo.Point{Lat: r.Center.Lat, Lon: r.Center.Lon}
		opts.Origin = &origin
	}
	records, err := s.hydrator.Hydrate(ctx, page.Hits, opts)
	if err != nil {
		return nil, err
	}

	dropped := 0
	for _, rec := range records {
		dropped += s.segments.Apply(rec)
	}
	if dropped > 0 {
		logger.FromContext(ctx).Debug("segments filtered", zap.Int("dropped", dropped))
	}

	return &Response{Results: records, Total: page.Total}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, domain.ErrDataConsistency):
		return "data_consistency"
	case errors.Is(err, domain.ErrMalformedHit):
		return "malformed_hit"
	case errors.Is(err, domain.ErrIndexUnavailable):
		return "index_unavailable"
	case errors.Is(err, domain.ErrSemanticSearchNotSupported):
		return "semantic_unsupported"
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded), errors.Is(err, domain.ErrEmbeddingProviderError):
		return "embedding_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
