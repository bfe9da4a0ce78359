// Package health aggregates readiness of the index, the subject store and the embedder.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates search works but semantic retrieval does not.
	Degraded Status = "degraded"
	// Unhealthy indicates search cannot be served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentIndex     = "index"
	ComponentDatabase  = "database"
	ComponentEmbedding = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	index     Pinger
	db        Pinger
	embedding EmbeddingChecker
}

// New creates a Service. embedding can be nil.
func New(index, db Pinger, embedding EmbeddingChecker) *Service {
	return &Service{index: index, db: db, embedding: embedding}
}

// Check runs health checks against all components. The index and the subject
// store are required; the embedder only degrades the status.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{
		ComponentIndex:    result(s.index.Ping(ctx)),
		ComponentDatabase: result(s.db.Ping(ctx)),
	}
	if s.embedding != nil {
		checks[ComponentEmbedding] = result(s.embedding.HealthCheck(ctx))
	}

	status := Healthy
	switch {
	case checks[ComponentIndex] == CheckError || checks[ComponentDatabase] == CheckError:
		status = Unhealthy
	case checks[ComponentEmbedding] == CheckError:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
