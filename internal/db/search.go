package db

import "github.com/schemalabz/opencouncil-sub005/internal/domain/search/filter"

// WeightedField is a text field and its query-time boost.
type WeightedField struct {
	Name   string
	Weight float64
}

// TextQuery is the input for weighted multi-field full-text search.
// Terms are OR-ed: a document matching any term in any field is a hit.
type TextQuery struct {
	IndexName    string
	Text         string
	Fields       []WeightedField
	Filters      filter.Expression
	Limit        int
	ReturnFields []string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Vector       []float32
	K            int
	Filters      filter.Expression
	ReturnFields []string
}

// SearchResult is the output of a search operation. Entries are in rank order.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
