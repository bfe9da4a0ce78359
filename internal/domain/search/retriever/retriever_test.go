package retriever

import (
	"strings"
	"testing"
)

func TestKind_IsValid(t *testing.T) {
	for _, k := range []Kind{Lexical, Nested, Semantic} {
		if !k.IsValid() {
			t.Errorf("%q.IsValid() = false", k)
		}
	}
	for _, k := range []Kind{"", "hybrid", "LEXICAL"} {
		if k.IsValid() {
			t.Errorf("%q.IsValid() = true", k)
		}
	}
}

func TestNewLexical(t *testing.T) {
	fields := []FieldWeight{{Field: "name", Boost: 3}, {Field: "description", Boost: 1}}
	s, err := NewLexical("ανακύκλωση", fields...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Kind() != Lexical {
		t.Errorf("Kind() = %q", s.Kind())
	}
	if s.Text() != "ανακύκλωση" {
		t.Errorf("Text() = %q", s.Text())
	}
	if len(s.Fields()) != 2 || s.Fields()[0].Boost != 3 {
		t.Errorf("Fields() = %+v", s.Fields())
	}
	if s.Vector() != nil {
		t.Error("Vector() should be nil for lexical")
	}

	fields[0].Boost = 100
	if s.Fields()[0].Boost != 3 {
		t.Error("Fields() aliased caller slice")
	}
}

func TestNewNested(t *testing.T) {
	s, err := NewNested("bike lanes", FieldWeight{Field: "text", Boost: 1}, FieldWeight{Field: "summary", Boost: 0.8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Kind() != Nested {
		t.Errorf("Kind() = %q", s.Kind())
	}
}

func TestNewText_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		fields  []FieldWeight
		wantErr string
	}{
		{"blank text", "   ", []FieldWeight{{Field: "name", Boost: 1}}, "text is required"},
		{"no fields", "q", nil, "at least one field"},
		{"empty field", "q", []FieldWeight{{Field: "", Boost: 1}}, "empty field name"},
		{"zero boost", "q", []FieldWeight{{Field: "name", Boost: 0}}, "must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLexical(tt.text, tt.fields...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewSemantic(t *testing.T) {
	s, err := NewSemantic([]float32{0.1, 0.2}, "description_vector")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Kind() != Semantic {
		t.Errorf("Kind() = %q", s.Kind())
	}
	if len(s.Vector()) != 2 || s.VectorField() != "description_vector" {
		t.Errorf("unexpected spec: %+v", s)
	}
	if s.Text() != "" || s.Fields() != nil {
		t.Error("semantic spec carries text fields")
	}

	if _, err := NewSemantic(nil, "v"); err == nil {
		t.Error("expected error for empty vector")
	}
	if _, err := NewSemantic([]float32{1}, ""); err == nil {
		t.Error("expected error for empty field")
	}
}
