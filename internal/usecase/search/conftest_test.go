package search

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/schemalabz/opencouncil-sub005/internal/domain"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/filter"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/result"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/retriever"
	domsubject "github.com/schemalabz/opencouncil-sub005/internal/domain/subject"
)

// --- Mocks ---

// memSubject is a subject as the fake index sees it.
type memSubject struct {
	id         string
	name       string
	cityID     string
	introducer string
	segments   []memSegment
}

type memSegment struct {
	id      string
	speaker string
	text    string
}

// memIndex evaluates filter expressions the way a real backend does and scores
// by how many query terms a field contains.
type memIndex struct {
	mu       sync.Mutex
	subjects []memSubject
	errs     map[retriever.Kind]error
	semantic []string
	calls    map[retriever.Kind]int
	filters  []filter.Expression
}

func newMemIndex(subjects ...memSubject) *memIndex {
	return &memIndex{subjects: subjects, errs: map[retriever.Kind]error{}, calls: map[retriever.Kind]int{}}
}

func (m *memIndex) Search(
	_ context.Context, spec retriever.Spec, filters filter.Expression, window int,
) (result.CandidateList, error) {
	m.mu.Lock()
	m.calls[spec.Kind()]++
	m.filters = append(m.filters, filters)
	err := m.errs[spec.Kind()]
	m.mu.Unlock()
	if err != nil {
		return result.CandidateList{}, err
	}

	var out []result.Candidate
	switch spec.Kind() {
	case retriever.Lexical:
		for _, s := range m.subjects {
			if !m.matches(s, filters) {
				continue
			}
			if score := termScore(spec.Text(), s.name); score > 0 {
				out = append(out, result.Candidate{ID: s.id, Score: score})
			}
		}
	case retriever.Nested:
		for _, s := range m.subjects {
			if !m.matches(s, filters) {
				continue
			}
			var best float64
			var hits []string
			for _, seg := range s.segments {
				if score := termScore(spec.Text(), seg.text); score > 0 {
					best = max(best, score)
					hits = append(hits, seg.id)
				}
			}
			if len(hits) > 0 {
				out = append(out, result.Candidate{ID: s.id, Score: best, InnerHitIDs: hits})
			}
		}
	case retriever.Semantic:
		for i, id := range m.semantic {
			out = append(out, result.Candidate{ID: id, Score: 1 - float64(i)/100})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	total := len(out)
	if len(out) > window {
		out = out[:window]
	}
	return result.NewCandidateList(spec.Kind(), total, out...), nil
}

func (m *memIndex) matches(s memSubject, expr filter.Expression) bool {
	for _, g := range expr.Groups() {
		ok := false
		for _, c := range g.Conditions() {
			if conditionMatches(s, c) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func conditionMatches(s memSubject, c filter.Condition) bool {
	if c.Kind() != filter.KindTerms {
		return true
	}
	switch c.Key() {
	case filter.FieldCityID:
		return slices.Contains(c.Values(), s.cityID)
	case filter.FieldIntroducerID:
		return slices.Contains(c.Values(), s.introducer)
	case filter.FieldSpeakerID:
		for _, seg := range s.segments {
			if slices.Contains(c.Values(), seg.speaker) {
				return true
			}
		}
	}
	return false
}

func termScore(query, text string) float64 {
	text = strings.ToLower(text)
	var score float64
	for _, term := range strings.Fields(strings.ToLower(query)) {
		score += float64(strings.Count(text, term))
	}
	return score
}

// staticRetriever returns fixed lists per branch.
type staticRetriever struct {
	lists map[retriever.Kind]result.CandidateList
}

func (s *staticRetriever) Search(
	_ context.Context, spec retriever.Spec, _ filter.Expression, _ int,
) (result.CandidateList, error) {
	return s.lists[spec.Kind()], nil
}

type mockStore struct {
	mu        sync.Mutex
	records   map[string]domsubject.Record
	coords    map[string]*domsubject.Coordinates
	loadErr   error
	coordsErr error
	loaded    []string
}

func newMockStore(records ...domsubject.Record) *mockStore {
	m := &mockStore{records: map[string]domsubject.Record{}, coords: map[string]*domsubject.Coordinates{}}
	for _, r := range records {
		m.records[r.ID] = r
	}
	return m
}

func (m *mockStore) LoadSubject(_ context.Context, id string, _ domsubject.Graph) (*domsubject.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = append(m.loaded, id)
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	r, ok := m.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	r.Segments = slices.Clone(r.Segments)
	if r.Location != nil {
		loc := *r.Location
		r.Location = &loc
	}
	return &r, nil
}

func (m *mockStore) LocationCoordinates(_ context.Context, locationID string) (*domsubject.Coordinates, error) {
	if m.coordsErr != nil {
		return nil, m.coordsErr
	}
	return m.coords[locationID], nil
}

type mockEmbedder struct {
	vec    []float32
	err    error
	called int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.called++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 3}, nil
}

// --- Helpers ---

func intPtr(n int) *int { return &n }

func candidates(branch retriever.Kind, ids ...string) result.CandidateList {
	cs := make([]result.Candidate, len(ids))
	for i, id := range ids {
		cs[i] = result.Candidate{ID: id}
	}
	return result.NewCandidateList(branch, len(ids), cs...)
}

func fusedIDs(fused []result.Fused) []string {
	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ID
	}
	return ids
}

func recordIDs(recs []*domsubject.Record) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}

var councillor = &domsubject.Person{
	ID:    "p1",
	Name:  "Μαρία Παπαδάκη",
	Roles: []domsubject.Role{{ID: "r1", Name: "Δημοτική σύμβουλος", CityID: "chania"}},
}

func longText(prefix string) string {
	return prefix + " " + strings.Repeat("λόγια ", 30)
}

func record(id, cityID string) domsubject.Record {
	return domsubject.Record{
		ID:      id,
		Name:    "subject " + id,
		Meeting: &domsubject.Meeting{ID: "m-" + id, CityID: cityID},
	}
}
