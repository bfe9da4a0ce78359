package search

import (
	"context"
	"testing"

	"github.com/schemalabz/opencouncil-sub005/internal/db"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/filter"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/retriever"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchTextFn func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	searchKNNFn  func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchTextFn != nil {
		return m.searchTextFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

// mockIndexManager records created indexes.
type mockIndexManager struct {
	existing map[string]bool
	vectors  bool
	created  []*db.IndexDefinition
	createFn func(def *db.IndexDefinition) error
}

func (m *mockIndexManager) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if m.createFn != nil {
		if err := m.createFn(def); err != nil {
			return err
		}
	}
	m.created = append(m.created, def)
	return nil
}

func (m *mockIndexManager) IndexExists(_ context.Context, name string) (bool, error) {
	return m.existing[name], nil
}

func (m *mockIndexManager) SupportsVectorSearch(context.Context) bool { return m.vectors }

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, DefaultSchema()), ms
}

func lexicalSpec(t *testing.T, text string) retriever.Spec {
	t.Helper()
	s, err := retriever.NewLexical(text,
		retriever.FieldWeight{Field: FieldName, Boost: 3},
		retriever.FieldWeight{Field: FieldDescription, Boost: 1},
	)
	if err != nil {
		t.Fatalf("NewLexical: %v", err)
	}
	return s
}

func nestedSpec(t *testing.T, text string) retriever.Spec {
	t.Helper()
	s, err := retriever.NewNested(text,
		retriever.FieldWeight{Field: FieldText, Boost: 1},
		retriever.FieldWeight{Field: FieldSummary, Boost: 0.8},
	)
	if err != nil {
		t.Fatalf("NewNested: %v", err)
	}
	return s
}

func semanticSpec(t *testing.T) retriever.Spec {
	t.Helper()
	s, err := retriever.NewSemantic([]float32{0.1, 0.2, 0.3, 0.4}, FieldDescriptionVector)
	if err != nil {
		t.Fatalf("NewSemantic: %v", err)
	}
	return s
}

func personExpr(t *testing.T, ids ...string) filter.Expression {
	t.Helper()
	intro, err := filter.NewTerms(filter.FieldIntroducerID, ids...)
	if err != nil {
		t.Fatal(err)
	}
	speaker, err := filter.NewTerms(filter.FieldSpeakerID, ids...)
	if err != nil {
		t.Fatal(err)
	}
	g, err := filter.NewGroup(intro, speaker.AsNested())
	if err != nil {
		t.Fatal(err)
	}
	e, err := filter.NewExpression(g)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func entry(key, subjectID string, score float64) db.SearchEntry {
	return db.SearchEntry{Key: key, Score: score, Fields: map[string]string{FieldSubjectID: subjectID}}
}

func segmentEntry(segmentID, subjectID string, score float64) db.SearchEntry {
	return db.SearchEntry{
		Key:   SegmentPrefix() + segmentID,
		Score: score,
		Fields: map[string]string{
			FieldSubjectID: subjectID,
			FieldSegmentID: segmentID,
		},
	}
}
