package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/schemalabz/opencouncil-sub005/internal/db"
	"github.com/schemalabz/opencouncil-sub005/internal/domain"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/filter"
)

// Physical fields of the subject and segment indexes. Facet fields keep their
// logical names from the filter package and are denormalized onto segments.
const (
	FieldSubjectID         = "subject_id"
	FieldSegmentID         = "segment_id"
	FieldName              = "name"
	FieldDescription       = "description"
	FieldText              = "text"
	FieldSummary           = "summary"
	FieldSpeakerIDs        = "speaker_ids"
	FieldDescriptionVector = "description_vector"
)

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Schema names and shapes the two indexes.
type Schema struct {
	SubjectIndex string
	SegmentIndex string
	// Language selects the stemmer of TEXT fields.
	Language  string
	VectorDim int
	HNSW      HNSWConfig
}

// DefaultSchema returns the production index layout.
func DefaultSchema() Schema {
	return Schema{
		SubjectIndex: domain.KeyPrefix + "subjects:idx",
		SegmentIndex: domain.KeyPrefix + "segments:idx",
		Language:     "greek",
		VectorDim:    1536,
		HNSW:         HNSWConfig{M: 32, EFConstruct: 400},
	}
}

// SubjectPrefix is the key prefix of subject documents.
func SubjectPrefix() string { return domain.KeyPrefix + "subject:" }

// SegmentPrefix is the key prefix of segment documents.
func SegmentPrefix() string { return domain.KeyPrefix + "segment:" }

// SubjectIndexDef builds the subject index definition.
// The vector field is added only when withVector is set. Text fields carry no
// index-time weight; boosts come from the query.
func (s Schema) SubjectIndexDef(withVector bool) (*db.IndexDefinition, error) {
	b := db.NewIndex(s.SubjectIndex).
		Prefix(SubjectPrefix()).
		Language(s.Language).
		Tag(FieldSubjectID).
		Text(FieldName).
		Text(FieldDescription)
	facets(b)
	if withVector {
		b.VectorHNSW(FieldDescriptionVector, s.VectorDim, db.DistanceCosine, s.HNSW.M, s.HNSW.EFConstruct)
	}
	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("subject index: %w", err)
	}
	return def, nil
}

// SegmentIndexDef builds the segment index definition. Every segment carries
// its parent subject id and the parent's facets.
func (s Schema) SegmentIndexDef() (*db.IndexDefinition, error) {
	b := db.NewIndex(s.SegmentIndex).
		Prefix(SegmentPrefix()).
		Language(s.Language).
		Tag(FieldSegmentID).
		Tag(FieldSubjectID).
		Text(FieldText).
		Text(FieldSummary)
	facets(b)
	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("segment index: %w", err)
	}
	return def, nil
}

func facets(b *db.IndexBuilder) {
	b.Tag(filter.FieldCityID).
		Tag(filter.FieldTopicID).
		Tag(filter.FieldPartyIDs).
		Tag(filter.FieldIntroducerID).
		Tag(FieldSpeakerIDs).
		Numeric(filter.FieldMeetingDate).
		Geo(filter.FieldLocation)
}

// indexManager is the consumer interface for schema management (ISP).
type indexManager interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsVectorSearch(ctx context.Context) bool
}

// EnsureIndexes creates whichever of the two indexes is missing and returns the names it created.
func EnsureIndexes(ctx context.Context, m indexManager, s Schema) ([]string, error) {
	subjects, err := s.SubjectIndexDef(m.SupportsVectorSearch(ctx))
	if err != nil {
		return nil, err
	}
	segments, err := s.SegmentIndexDef()
	if err != nil {
		return nil, err
	}

	var created []string
	for _, def := range []*db.IndexDefinition{subjects, segments} {
		exists, err := m.IndexExists(ctx, def.Name)
		if err != nil {
			return created, fmt.Errorf("check index %s: %w", def.Name, err)
		}
		if exists {
			continue
		}
		if err := m.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return created, fmt.Errorf("create index %s: %w", def.Name, err)
		}
		created = append(created, def.Name)
	}
	return created, nil
}

// physicalKey maps a logical filter key onto the index field that stores it.
// Nested speaker conditions read the subject-wide speaker set.
func physicalKey(key string, nested bool) string {
	if nested && key == filter.FieldSpeakerID {
		return FieldSpeakerIDs
	}
	return key
}
