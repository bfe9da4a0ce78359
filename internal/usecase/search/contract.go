package search

import (
	"context"

	"github.com/schemalabz/opencouncil-sub005/internal/domain"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/filter"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/result"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/retriever"
	domsubject "github.com/schemalabz/opencouncil-sub005/internal/domain/subject"
)

// Retriever runs one branch against the index service.
type Retriever interface {
	Search(
		ctx context.Context, spec retriever.Spec,
		filters filter.Expression, window int,
	) (result.CandidateList, error)
}

// SubjectStore loads authoritative subject records for hydration.
type SubjectStore interface {
	LoadSubject(ctx context.Context, id string, g domsubject.Graph) (*domsubject.Record, error)
	LocationCoordinates(ctx context.Context, locationID string) (*domsubject.Coordinates, error)
}

// Embedder vectorizes the query for the semantic branch.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
