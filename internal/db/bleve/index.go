package bleve

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/schemalabz/opencouncil-sub005/internal/db"
)

// CreateIndex builds a bleve mapping from the definition and opens the index.
// VECTOR fields are skipped: this backend has no vector retrieval.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}

	m := buildMapping(def)
	var (
		idx bleve.Index
		err error
	)
	if s.dir == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		idx, err = bleve.New(s.path(def.Name), m)
		if errors.Is(err, bleve.ErrorIndexPathExists) {
			return db.ErrIndexExists
		}
	}
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	s.indexes[def.Name] = idx
	return nil
}

// DropIndex closes the index and removes it from disk.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexes[name]
	if ok {
		delete(s.indexes, name)
		if err := idx.Close(); err != nil {
			return &db.Error{Op: db.OpDropIndex, Err: err}
		}
	}
	if s.dir == "" {
		if !ok {
			return db.ErrIndexNotFound
		}
		return nil
	}
	if _, err := os.Stat(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	if err := os.RemoveAll(s.path(name)); err != nil {
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexExists reports whether the index is open or present on disk.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	_, err := s.index(name)
	if errors.Is(err, db.ErrIndexNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SupportsVectorSearch returns false: the embedded backend serves text and filter queries only.
func (s *Store) SupportsVectorSearch(_ context.Context) bool {
	return false
}

// textAnalyzers maps RediSearch LANGUAGE names onto bleve analyzers.
// Languages without a bleve stemmer (greek among them) use the standard
// analyzer: unicode tokens, lowercased, unstemmed.
var textAnalyzers = map[string]string{
	"english": en.AnalyzerName,
}

func textAnalyzer(language string) string {
	if name, ok := textAnalyzers[strings.ToLower(language)]; ok {
		return name
	}
	return standard.Name
}

func buildMapping(def *db.IndexDefinition) mapping.IndexMapping {
	analyzer := textAnalyzer(def.Language)
	doc := bleve.NewDocumentMapping()
	doc.Dynamic = false

	for i := range def.Fields {
		f := &def.Fields[i]
		name := f.Name
		if f.Alias != "" {
			name = f.Alias
		}

		var fm *mapping.FieldMapping
		switch f.Type {
		case db.IndexFieldText:
			fm = bleve.NewTextFieldMapping()
			fm.Analyzer = analyzer
			fm.Store = false
		case db.IndexFieldTag:
			fm = bleve.NewKeywordFieldMapping()
			fm.Analyzer = keyword.Name
			fm.Store = true
		case db.IndexFieldNumeric:
			fm = bleve.NewNumericFieldMapping()
			fm.Store = true
		case db.IndexFieldGeo:
			fm = bleve.NewGeoPointFieldMapping()
		default:
			continue
		}
		doc.AddFieldMappingsAt(name, fm)
	}

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = analyzer
	return im
}
