package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/schemalabz/opencouncil-sub005/internal/db"
	"github.com/schemalabz/opencouncil-sub005/internal/domain"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/filter"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/result"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/retriever"
)

// DefaultSegmentFanOut is how many segments are fetched per subject slot of the window.
const DefaultSegmentFanOut = 5

// maxSegmentFetch caps the nested branch fetch regardless of window and fan-out.
const maxSegmentFetch = 10000

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.Retriever over the subject and segment indexes.
type Repo struct {
	store  store
	schema Schema
	fanOut int
}

// New creates a search repository.
func New(s store, schema Schema) *Repo {
	return &Repo{store: s, schema: schema, fanOut: DefaultSegmentFanOut}
}

// WithSegmentFanOut sets how many segments are fetched per window slot.
func (r *Repo) WithSegmentFanOut(n int) *Repo {
	if n > 0 {
		r.fanOut = n
	}
	return r
}

// Search runs one branch and returns at most window candidates in branch rank order.
func (r *Repo) Search(
	ctx context.Context, spec retriever.Spec, filters filter.Expression, window int,
) (result.CandidateList, error) {
	if window <= 0 {
		return result.CandidateList{}, fmt.Errorf("%w: window must be positive", domain.ErrInvalidRequest)
	}
	filters = filters.MapKeys(physicalKey)

	switch spec.Kind() {
	case retriever.Lexical:
		return r.searchLexical(ctx, spec, filters, window)
	case retriever.Nested:
		return r.searchNested(ctx, spec, filters, window)
	case retriever.Semantic:
		return r.searchSemantic(ctx, spec, filters, window)
	default:
		return result.CandidateList{}, fmt.Errorf("%w: unknown branch %q", domain.ErrInvalidRequest, spec.Kind())
	}
}

func (r *Repo) searchLexical(
	ctx context.Context, spec retriever.Spec, filters filter.Expression, window int,
) (result.CandidateList, error) {
	res, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    r.schema.SubjectIndex,
		Text:         spec.Text(),
		Fields:       weightedFields(spec.Fields()),
		Filters:      filters,
		Limit:        window,
		ReturnFields: []string{FieldSubjectID},
	})
	if err != nil {
		return result.CandidateList{}, branchError(retriever.Lexical, err)
	}
	return subjectCandidates(retriever.Lexical, res)
}

func (r *Repo) searchSemantic(
	ctx context.Context, spec retriever.Spec, filters filter.Expression, window int,
) (result.CandidateList, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.schema.SubjectIndex,
		VectorField:  spec.VectorField(),
		Vector:       spec.Vector(),
		K:            window,
		Filters:      filters,
		ReturnFields: []string{FieldSubjectID},
	})
	if err != nil {
		return result.CandidateList{}, branchError(retriever.Semantic, err)
	}
	return subjectCandidates(retriever.Semantic, res)
}

// searchNested matches segments and folds them into their subjects. A subject
// ranks at its best segment's position and keeps that segment's score; every
// matched segment id is reported as an inner hit.
func (r *Repo) searchNested(
	ctx context.Context, spec retriever.Spec, filters filter.Expression, window int,
) (result.CandidateList, error) {
	res, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    r.schema.SegmentIndex,
		Text:         spec.Text(),
		Fields:       weightedFields(spec.Fields()),
		Filters:      filters,
		Limit:        min(window*r.fanOut, maxSegmentFetch),
		ReturnFields: []string{FieldSubjectID, FieldSegmentID},
	})
	if err != nil {
		return result.CandidateList{}, branchError(retriever.Nested, err)
	}

	pos := make(map[string]int)
	var candidates []result.Candidate
	for _, e := range res.Entries {
		subjectID := e.Fields[FieldSubjectID]
		if subjectID == "" {
			return result.CandidateList{}, domain.NewMalformedHit(string(retriever.Nested), e.Key, FieldSubjectID)
		}
		segmentID := e.Fields[FieldSegmentID]
		if segmentID == "" {
			return result.CandidateList{}, domain.NewMalformedHit(string(retriever.Nested), e.Key, FieldSegmentID)
		}

		i, ok := pos[subjectID]
		if !ok {
			pos[subjectID] = len(candidates)
			candidates = append(candidates, result.Candidate{ID: subjectID, Score: e.Score})
			i = len(candidates) - 1
		}
		c := &candidates[i]
		c.Score = max(c.Score, e.Score)
		c.InnerHitIDs = append(c.InnerHitIDs, segmentID)
	}

	total := len(candidates)
	if len(candidates) > window {
		candidates = candidates[:window]
	}
	return result.NewCandidateList(retriever.Nested, total, candidates...), nil
}

func subjectCandidates(branch retriever.Kind, res *db.SearchResult) (result.CandidateList, error) {
	seen := make(map[string]struct{}, len(res.Entries))
	candidates := make([]result.Candidate, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := e.Fields[FieldSubjectID]
		if id == "" {
			return result.CandidateList{}, domain.NewMalformedHit(string(branch), e.Key, FieldSubjectID)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		candidates = append(candidates, result.Candidate{ID: id, Score: e.Score})
	}
	return result.NewCandidateList(branch, res.Total, candidates...), nil
}

func weightedFields(fields []retriever.FieldWeight) []db.WeightedField {
	out := make([]db.WeightedField, len(fields))
	for i, f := range fields {
		out[i] = db.WeightedField{Name: f.Field, Weight: f.Boost}
	}
	return out
}

// branchError maps backend failures onto domain sentinels.
func branchError(branch retriever.Kind, err error) error {
	switch {
	case errors.Is(err, db.ErrVectorSearchUnsupported):
		return fmt.Errorf("%s branch: %w", branch, domain.ErrSemanticSearchNotSupported)
	case errors.Is(err, db.ErrMalformedReply):
		return fmt.Errorf("%s branch: %w: %v", branch, domain.ErrMalformedHit, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s branch: %w: %w", branch, domain.ErrIndexUnavailable, err)
	default:
		return fmt.Errorf("%s branch: %w: %v", branch, domain.ErrIndexUnavailable, err)
	}
}
