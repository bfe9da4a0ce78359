package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	domsubject "github.com/schemalabz/opencouncil-sub005/internal/domain/subject"
)

// ErrorResponseCode is the machine-readable error kind.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest                 ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized               ErrorResponseCode = "unauthorized"
	ErrorResponseCodeValidationFailed           ErrorResponseCode = "validation_failed"
	ErrorResponseCodeIndexUnavailable           ErrorResponseCode = "index_unavailable"
	ErrorResponseCodeDataConsistency            ErrorResponseCode = "data_consistency"
	ErrorResponseCodeMalformedHit               ErrorResponseCode = "malformed_hit"
	ErrorResponseCodeSemanticSearchNotSupported ErrorResponseCode = "semantic_search_not_supported"
	ErrorResponseCodeEmbeddingQuotaExceeded     ErrorResponseCode = "embedding_quota_exceeded"
	ErrorResponseCodeEmbeddingProviderError     ErrorResponseCode = "embedding_provider_error"
	ErrorResponseCodeInternalError              ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// DateRange is an inclusive calendar range.
type DateRange struct {
	Start openapi_types.Date `json:"start"`
	End   openapi_types.Date `json:"end"`
}

// GeoFilter is a radius around a point.
type GeoFilter struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	RadiusKm float64 `json:"radiusKm"`
}

// SearchConfig tunes fusion and paging.
type SearchConfig struct {
	EnableSemanticSearch *bool `json:"enableSemanticSearch,omitempty"`
	Size                 *int  `json:"size,omitempty"`
	From                 *int  `json:"from,omitempty"`
	RankWindowSize       *int  `json:"rankWindowSize,omitempty"`
	RankConstant         *int  `json:"rankConstant,omitempty"`
	InnerHits            *bool `json:"innerHits,omitempty"`
}

// SearchRequest is the POST /v1/search body.
type SearchRequest struct {
	Query     string        `json:"query"`
	CityIds   *[]string     `json:"cityIds,omitempty"`
	PersonIds *[]string     `json:"personIds,omitempty"`
	PartyIds  *[]string     `json:"partyIds,omitempty"`
	TopicIds  *[]string     `json:"topicIds,omitempty"`
	DateRange *DateRange    `json:"dateRange,omitempty"`
	Geo       *GeoFilter    `json:"geo,omitempty"`
	Config    *SearchConfig `json:"config,omitempty"`
}

// SearchResponse is one page of hydrated subjects.
type SearchResponse struct {
	Results []*domsubject.Record `json:"results"`
	Total   int                  `json:"total"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UsageBudget is the token budget of the reported period.
type UsageBudget struct {
	TokensLimit     int64 `json:"tokensLimit"`
	TokensRemaining int64 `json:"tokensRemaining"`
	IsExhausted     bool  `json:"isExhausted"`
	ResetsAt        int64 `json:"resetsAt"`
}

// UsageResponse reports embedding consumption for one period.
type UsageResponse struct {
	Period      string      `json:"period"`
	PeriodStart int64       `json:"periodStart"`
	PeriodEnd   int64       `json:"periodEnd"`
	Provider    string      `json:"provider,omitempty"`
	Tokens      int64       `json:"tokens"`
	Budget      UsageBudget `json:"budget"`
}

// UsageParams are the GET /v1/usage query parameters.
type UsageParams struct {
	Period *string `form:"period,omitempty"`
}

// SearchParams are the GET /v1/search query parameters.
type SearchParams struct {
	Query                string              `form:"query"`
	CityIds              *[]string           `form:"cityIds,omitempty"`
	PersonIds            *[]string           `form:"personIds,omitempty"`
	PartyIds             *[]string           `form:"partyIds,omitempty"`
	TopicIds             *[]string           `form:"topicIds,omitempty"`
	DateStart            *openapi_types.Date `form:"dateStart,omitempty"`
	DateEnd              *openapi_types.Date `form:"dateEnd,omitempty"`
	Lat                  *float64            `form:"lat,omitempty"`
	Lon                  *float64            `form:"lon,omitempty"`
	RadiusKm             *float64            `form:"radiusKm,omitempty"`
	EnableSemanticSearch *bool               `form:"enableSemanticSearch,omitempty"`
	Size                 *int                `form:"size,omitempty"`
	From                 *int                `form:"from,omitempty"`
	RankWindowSize       *int                `form:"rankWindowSize,omitempty"`
	RankConstant         *int                `form:"rankConstant,omitempty"`
	InnerHits            *bool               `form:"innerHits,omitempty"`
}

// ServerInterface is the HTTP surface of the search API.
type ServerInterface interface {
	// Search handles POST /v1/search.
	Search(w http.ResponseWriter, r *http.Request)
	// SearchByQuery handles GET /v1/search.
	SearchByQuery(w http.ResponseWriter, r *http.Request, params SearchParams)
	// GetUsage handles GET /v1/usage.
	GetUsage(w http.ResponseWriter, r *http.Request, params UsageParams)
	// HealthCheck handles GET /health.
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// Metrics handles GET /metrics.
	Metrics(w http.ResponseWriter, r *http.Request)
}

// ChiServerOptions configures route registration.
type ChiServerOptions struct {
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions registers the API routes on the base router.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		}
	}

	r.Post("/v1/search", si.Search)
	r.Get("/v1/search", func(w http.ResponseWriter, req *http.Request) {
		params, err := bindSearchParams(req)
		if err != nil {
			options.ErrorHandlerFunc(w, req, err)
			return
		}
		si.SearchByQuery(w, req, params)
	})
	r.Get("/v1/usage", func(w http.ResponseWriter, req *http.Request) {
		var params UsageParams
		err := runtime.BindQueryParameter("form", true, false, "period", req.URL.Query(), &params.Period)
		if err != nil {
			options.ErrorHandlerFunc(w, req, fmt.Errorf("invalid format for parameter period: %w", err))
			return
		}
		si.GetUsage(w, req, params)
	})
	r.Get("/health", si.HealthCheck)
	r.Get("/metrics", si.Metrics)
	return r
}

func bindSearchParams(r *http.Request) (SearchParams, error) {
	var params SearchParams
	q := r.URL.Query()

	bindings := []struct {
		name     string
		required bool
		dest     any
	}{
		{"query", true, &params.Query},
		{"cityIds", false, &params.CityIds},
		{"personIds", false, &params.PersonIds},
		{"partyIds", false, &params.PartyIds},
		{"topicIds", false, &params.TopicIds},
		{"dateStart", false, &params.DateStart},
		{"dateEnd", false, &params.DateEnd},
		{"lat", false, &params.Lat},
		{"lon", false, &params.Lon},
		{"radiusKm", false, &params.RadiusKm},
		{"enableSemanticSearch", false, &params.EnableSemanticSearch},
		{"size", false, &params.Size},
		{"from", false, &params.From},
		{"rankWindowSize", false, &params.RankWindowSize},
		{"rankConstant", false, &params.RankConstant},
		{"innerHits", false, &params.InnerHits},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, b.required, b.name, q, b.dest); err != nil {
			return SearchParams{}, fmt.Errorf("invalid format for parameter %s: %w", b.name, err)
		}
	}
	return params, nil
}
