// Package retriever describes the independent ranked-candidate queries of one search.
package retriever

import (
	"fmt"
	"strings"
)

// Kind selects the retrieval branch.
type Kind string

// Branch kinds.
const (
	Lexical  Kind = "lexical"
	Nested   Kind = "nested"
	Semantic Kind = "semantic"
)

// IsValid reports whether k is a known branch kind.
func (k Kind) IsValid() bool {
	switch k {
	case Lexical, Nested, Semantic:
		return true
	}
	return false
}

// FieldWeight is a text field and its boost within a branch.
type FieldWeight struct {
	Field string
	Boost float64
}

// Spec is a single branch query. Exactly one of text or vector is set,
// depending on Kind.
type Spec struct {
	kind   Kind
	text   string
	fields []FieldWeight
	vector []float32
	field  string
}

// NewLexical creates a weighted OR match over subject fields.
func NewLexical(text string, fields ...FieldWeight) (Spec, error) {
	return newText(Lexical, text, fields)
}

// NewNested creates a weighted OR match over segment sub-documents.
func NewNested(text string, fields ...FieldWeight) (Spec, error) {
	return newText(Nested, text, fields)
}

// NewSemantic creates a vector similarity query against a vector field.
func NewSemantic(vector []float32, field string) (Spec, error) {
	if len(vector) == 0 {
		return Spec{}, fmt.Errorf("semantic retriever: vector is required")
	}
	if field == "" {
		return Spec{}, fmt.Errorf("semantic retriever: vector field is required")
	}
	return Spec{kind: Semantic, vector: vector, field: field}, nil
}

func newText(kind Kind, text string, fields []FieldWeight) (Spec, error) {
	if strings.TrimSpace(text) == "" {
		return Spec{}, fmt.Errorf("%s retriever: text is required", kind)
	}
	if len(fields) == 0 {
		return Spec{}, fmt.Errorf("%s retriever: at least one field is required", kind)
	}
	for _, f := range fields {
		if f.Field == "" {
			return Spec{}, fmt.Errorf("%s retriever: empty field name", kind)
		}
		if f.Boost <= 0 {
			return Spec{}, fmt.Errorf("%s retriever: boost for %q must be positive", kind, f.Field)
		}
	}
	fs := make([]FieldWeight, len(fields))
	copy(fs, fields)
	return Spec{kind: kind, text: text, fields: fs}, nil
}

// Kind returns the branch kind.
func (s Spec) Kind() Kind { return s.kind }

// Text returns the query text of a lexical or nested branch.
func (s Spec) Text() string { return s.text }

// Fields returns the weighted fields of a lexical or nested branch.
func (s Spec) Fields() []FieldWeight { return s.fields }

// Vector returns the query embedding of a semantic branch.
func (s Spec) Vector() []float32 { return s.vector }

// VectorField returns the vector field of a semantic branch.
func (s Spec) VectorField() string { return s.field }
