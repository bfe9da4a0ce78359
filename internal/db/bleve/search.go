package bleve

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/schemalabz/opencouncil-sub005/internal/db"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/filter"
)

// SearchText runs an OR match per field, boosted by field weight, under the filters.
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
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("query is required")
	}

	idx, err := s.index(q.IndexName)
	if err != nil {
		return nil, err
	}

	matches := make([]query.Query, 0, len(q.Fields))
	for _, f := range q.Fields {
		mq := bleve.NewMatchQuery(q.Text)
		mq.SetField(f.Name)
		mq.SetOperator(query.MatchQueryOperatorOr)
		if f.Weight > 0 {
			mq.SetBoost(f.Weight)
		}
		matches = append(matches, mq)
	}
	var root query.Query = bleve.NewDisjunctionQuery(matches...)
	if fq := buildFilter(q.Filters); fq != nil {
		root = bleve.NewConjunctionQuery(root, fq)
	}

	req := bleve.NewSearchRequestOptions(root, q.Limit, 0, false)
	req.Fields = q.ReturnFields
	req.SortBy([]string{"-_score", "_id"})

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return toResult(res), nil
}

// SearchKNN is not available on the embedded backend.
func (s *Store) SearchKNN(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
	return nil, db.ErrVectorSearchUnsupported
}

func toResult(res *bleve.SearchResult) *db.SearchResult {
	out := &db.SearchResult{
		Total:   int(res.Total),
		Entries: make([]db.SearchEntry, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		fields := make(map[string]string, len(hit.Fields))
		for name, v := range hit.Fields {
			fields[name] = fieldString(v)
		}
		out.Entries = append(out.Entries, db.SearchEntry{
			Key:    hit.ID,
			Score:  hit.Score,
			Fields: fields,
		})
	}
	return out
}

// fieldString flattens stored values the way hash fields look: multi-values joined by comma.
func fieldString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, fieldString(p))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}

// buildFilter turns the expression into a non-scoring query: groups are conjoined,
// conditions inside a group disjoined. Returns nil for an empty expression.
func buildFilter(expr filter.Expression) query.Query {
	if expr.IsEmpty() {
		return nil
	}
	groups := make([]query.Query, 0, len(expr.Groups()))
	for _, g := range expr.Groups() {
		conds := make([]query.Query, 0, len(g.Conditions()))
		for _, c := range g.Conditions() {
			if cq := buildCondition(c); cq != nil {
				conds = append(conds, cq)
			}
		}
		if len(conds) == 1 {
			groups = append(groups, conds[0])
			continue
		}
		dq := bleve.NewDisjunctionQuery(conds...)
		dq.SetBoost(0)
		groups = append(groups, dq)
	}
	cq := bleve.NewConjunctionQuery(groups...)
	cq.SetBoost(0)
	return cq
}

func buildCondition(c filter.Condition) query.Query {
	switch c.Kind() {
	case filter.KindTerms:
		terms := make([]query.Query, 0, len(c.Values()))
		for _, v := range c.Values() {
			tq := bleve.NewTermQuery(v)
			tq.SetField(c.Key())
			tq.SetBoost(0)
			terms = append(terms, tq)
		}
		if len(terms) == 1 {
			return terms[0]
		}
		dq := bleve.NewDisjunctionQuery(terms...)
		dq.SetBoost(0)
		return dq
	case filter.KindRange:
		return buildRange(c.Key(), *c.Range())
	case filter.KindGeo:
		r := c.Radius()
		gq := bleve.NewGeoDistanceQuery(r.Center.Lon, r.Center.Lat,
			strconv.FormatFloat(r.Km, 'f', -1, 64)+"km")
		gq.SetField(c.Key())
		gq.SetBoost(0)
		return gq
	}
	return nil
}

func buildRange(key string, r filter.Range) query.Query {
	var (
		lo, hi         *float64
		loIncl, hiIncl bool
	)
	switch {
	case r.GT() != nil:
		lo = r.GT()
	case r.GTE() != nil:
		lo, loIncl = r.GTE(), true
	}
	switch {
	case r.LT() != nil:
		hi = r.LT()
	case r.LTE() != nil:
		hi, hiIncl = r.LTE(), true
	}
	nq := bleve.NewNumericRangeInclusiveQuery(lo, hi, &loIncl, &hiIncl)
	nq.SetField(key)
	nq.SetBoost(0)
	return nq
}
