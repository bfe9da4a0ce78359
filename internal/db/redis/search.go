package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/schemalabz/opencouncil-sub005/internal/db"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/filter"
)

// knnScoreField is the alias of the vector distance in KNN replies.
const knnScoreField = "__score"

// SearchText runs a weighted multi-field OR match via FT.SEARCH.
func (s *Store) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Fields) == 0 {
		return nil, fmt.Errorf("at least one field is required")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	textPart := buildTextQuery(q.Text, q.Fields)
	if textPart == "" {
		return nil, fmt.Errorf("query is required")
	}

	queryStr := textPart
	if filterStr := buildFilter(q.Filters); filterStr != "" {
		queryStr = fmt.Sprintf("%s (%s)", filterStr, textPart)
	}

	args := []string{q.IndexName, queryStr, "WITHSCORES"}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	args = append(args,
		"LIMIT", "0", strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseScoredResult(raw)
}

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.VectorField == "" {
		return nil, fmt.Errorf("vector field is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB AS %s]", q.K, q.VectorField, knnScoreField)
	queryStr := "*=>" + knnPart
	if filterStr := buildFilter(q.Filters); filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	}

	args := []string{q.IndexName, queryStr}
	returnFields := append([]string{knnScoreField}, q.ReturnFields...)
	args = append(args, "RETURN", strconv.Itoa(len(returnFields)))
	args = append(args, returnFields...)
	args = append(args,
		"SORTBY", knnScoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(raw)
}

// --- Result parsing ---

func parseTotal(raw []rueidis.RedisMessage) (int, error) {
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("%w: total: %v", db.ErrMalformedReply, err)
	}
	return int(total), nil
}

// parseScoredResult decodes the 3-stride WITHSCORES reply:
// [total, key1, score1, fields1, key2, score2, fields2, ...].
func parseScoredResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := parseTotal(raw)
	if err != nil {
		return nil, err
	}
	if (len(raw)-1)%3 != 0 {
		return nil, fmt.Errorf("%w: %d elements after total, want multiple of 3", db.ErrMalformedReply, len(raw)-1)
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/3)
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			return nil, fmt.Errorf("%w: key at %d: %v", db.ErrMalformedReply, i, err)
		}
		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			return nil, fmt.Errorf("%w: score of %q: %v", db.ErrMalformedReply, key, err)
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: score of %q: %v", db.ErrMalformedReply, key, err)
		}
		fields, err := raw[i+2].ToArray()
		if err != nil {
			return nil, fmt.Errorf("%w: fields of %q: %v", db.ErrMalformedReply, key, err)
		}
		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  score,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

// parseKNNResult decodes the 2-stride reply [total, key1, fields1, ...]
// and turns cosine distance into similarity.
func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := parseTotal(raw)
	if err != nil {
		return nil, err
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			return nil, fmt.Errorf("%w: key at %d: %v", db.ErrMalformedReply, i, err)
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			return nil, fmt.Errorf("%w: fields of %q: %v", db.ErrMalformedReply, key, err)
		}

		entry := db.SearchEntry{Key: key, Fields: parseFieldPairs(fields)}
		scoreStr, ok := entry.Fields[knnScoreField]
		if !ok {
			return nil, fmt.Errorf("%w: %q has no %s", db.ErrMalformedReply, key, knnScoreField)
		}
		dist, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: distance of %q: %v", db.ErrMalformedReply, key, err)
		}
		entry.Score = max(0, 1.0-dist)
		delete(entry.Fields, knnScoreField)

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query building ---

// buildTextQuery OR-s every term across every field, each field carrying its boost:
// (@name:(a|b)) => { $weight: 3; } | (@description:(a|b)) => { $weight: 1; }
func buildTextQuery(text string, fields []db.WeightedField) string {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return ""
	}
	escaped := make([]string, len(terms))
	for i, t := range terms {
		escaped[i] = escapeQuery(t)
	}
	termExpr := strings.Join(escaped, "|")

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		weight := f.Weight
		if weight <= 0 {
			weight = 1
		}
		parts = append(parts, fmt.Sprintf("(@%s:(%s)) => { $weight: %s; }",
			f.Name, termExpr, formatNum(weight)))
	}
	return strings.Join(parts, " | ")
}

// buildFilter translates filter.Expression into an FT.SEARCH pre-filter.
// Groups are juxtaposed (AND); conditions inside a group are OR-ed.
func buildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}

	parts := make([]string, 0, len(expr.Groups()))
	for _, g := range expr.Groups() {
		conds := g.Conditions()
		if len(conds) == 1 {
			parts = append(parts, buildCondition(conds[0]))
			continue
		}
		sub := make([]string, 0, len(conds))
		for _, c := range conds {
			sub = append(sub, buildCondition(c))
		}
		parts = append(parts, "("+strings.Join(sub, " | ")+")")
	}
	return strings.Join(parts, " ")
}

func buildCondition(cond filter.Condition) string {
	switch cond.Kind() {
	case filter.KindTerms:
		return buildTagFilter(cond.Key(), cond.Values())
	case filter.KindRange:
		return buildNumericFilter(cond.Key(), *cond.Range())
	case filter.KindGeo:
		r := cond.Radius()
		return fmt.Sprintf("@%s:[%s %s %s km]", cond.Key(),
			formatNum(r.Center.Lon), formatNum(r.Center.Lat), formatNum(r.Km))
	}
	return ""
}

// formatNum prints without exponent so epoch seconds stay readable.
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func buildTagFilter(key string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", key, strings.Join(escaped, " | "))
}

func buildNumericFilter(key string, r filter.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.GT() != nil {
		minBound = "(" + formatNum(*r.GT())
	} else if r.GTE() != nil {
		minBound = formatNum(*r.GTE())
	}

	if r.LT() != nil {
		maxBound = "(" + formatNum(*r.LT())
	} else if r.LTE() != nil {
		maxBound = formatNum(*r.LTE())
	}

	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`,`, `\,`,
	`.`, `\.`,
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
