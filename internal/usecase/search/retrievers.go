package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/schemalabz/opencouncil-sub005/internal/domain"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/filter"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/result"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/retriever"
	"github.com/schemalabz/opencouncil-sub005/internal/logger"
	"github.com/schemalabz/opencouncil-sub005/internal/metrics"
)

// Index field names the branches match against.
const (
	fieldName              = "name"
	fieldDescription       = "description"
	fieldText              = "text"
	fieldSummary           = "summary"
	fieldDescriptionVector = "description_vector"
)

// Weights are the per-field boosts of the text branches.
type Weights struct {
	Name        float64
	Description float64
	Text        float64
	Summary     float64
}

// DefaultWeights favours subject titles over descriptions and segment text over summaries.
func DefaultWeights() Weights {
	return Weights{Name: 3, Description: 1, Text: 1, Summary: 0.8}
}

func (w Weights) withDefaults() Weights {
	d := DefaultWeights()
	if w.Name <= 0 {
		w.Name = d.Name
	}
	if w.Description <= 0 {
		w.Description = d.Description
	}
	if w.Text <= 0 {
		w.Text = d.Text
	}
	if w.Summary <= 0 {
		w.Summary = d.Summary
	}
	return w
}

// RetrieverSet builds the branch queries of one search and runs them concurrently.
type RetrieverSet struct {
	retriever Retriever
	embedder  Embedder
	weights   Weights
}

// NewRetrieverSet creates a retriever set. embedder can be nil when the
// deployment has no semantic branch.
func NewRetrieverSet(r Retriever, embedder Embedder, w Weights) *RetrieverSet {
	return &RetrieverSet{retriever: r, embedder: embedder, weights: w.withDefaults()}
}

// Specs returns the lexical and nested branches, plus the semantic branch when
// requested. The query is embedded only for the semantic branch.
func (s *RetrieverSet) Specs(ctx context.Context, query string, semantic bool) ([]retriever.Spec, error) {
	lexical, err := retriever.NewLexical(query,
		retriever.FieldWeight{Field: fieldName, Boost: s.weights.Name},
		retriever.FieldWeight{Field: fieldDescription, Boost: s.weights.Description},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	nested, err := retriever.NewNested(query,
		retriever.FieldWeight{Field: fieldText, Boost: s.weights.Text},
		retriever.FieldWeight{Field: fieldSummary, Boost: s.weights.Summary},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	specs := []retriever.Spec{lexical, nested}
	if !semantic {
		return specs, nil
	}

	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured: %w", domain.ErrSemanticSearchNotSupported)
	}
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	sem, err := retriever.NewSemantic(emb.Embedding, fieldDescriptionVector)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w: %v", domain.ErrEmbeddingProviderError, err)
	}
	return append(specs, sem), nil
}

// Retrieve runs every branch concurrently with the shared filters. The first
// failure cancels the remaining branches and fails the whole call. Lists are
// returned in spec order.
func (s *RetrieverSet) Retrieve(
	ctx context.Context, specs []retriever.Spec, filters filter.Expression, window int,
) ([]result.CandidateList, error) {
	log := logger.FromContext(ctx)
	lists := make([]result.CandidateList, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			start := time.Now()
			list, err := s.retriever.Search(gctx, spec, filters, window)
			metrics.SearchBranchDuration.
				WithLabelValues(string(spec.Kind()), branchStatus(err)).
				Observe(time.Since(start).Seconds())
			if err != nil {
				return fmt.Errorf("%s branch: %w", spec.Kind(), err)
			}
			log.Debug("branch retrieved",
				zap.String("branch", string(spec.Kind())),
				zap.Int("candidates", list.Len()),
				zap.Int("total", list.Total),
				zap.Duration("duration", time.Since(start)),
			)
			lists[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lists, nil
}

func branchStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
