// Package usage reports embedding token consumption for the current period.
package usage

import (
	"context"
	"time"

	domusage "github.com/schemalabz/opencouncil-sub005/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br       BudgetReader
	provider string
	now      func() time.Time
}

// New creates a Service. br can be nil (unlimited or embedding disabled).
func New(br BudgetReader, provider string) *Service {
	return &Service{br: br, provider: provider, now: time.Now}
}

// GetReport builds a usage report for the period containing now.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	start, end := period.Bounds(s.now())

	var used, limit int64
	remaining := int64(-1)
	if s.br != nil {
		switch period {
		case domusage.PeriodMonth:
			used, limit, remaining = s.br.MonthlyUsed(), s.br.MonthlyLimit(), s.br.RemainingMonthly()
		default:
			used, limit, remaining = s.br.DailyUsed(), s.br.DailyLimit(), s.br.RemainingDaily()
		}
	}

	return domusage.NewReport(period, start, end, s.provider, used, limit, remaining)
}
