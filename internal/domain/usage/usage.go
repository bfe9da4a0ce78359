// Package usage describes embedding token consumption against the configured budget.
package usage

import (
	"fmt"
	"time"

	"github.com/schemalabz/opencouncil-sub005/internal/domain"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period name. Empty means day.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("%w: unknown period %q (want day or month)", domain.ErrInvalidRequest, s)
	}
}

// Bounds returns the UTC period containing t as [start, end).
func (p Period) Bounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	if p == PeriodMonth {
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Report is the embedding usage of one provider over one period.
type Report struct {
	period      Period
	periodStart time.Time
	periodEnd   time.Time
	provider    string
	tokensUsed  int64
	limit       int64
	remaining   int64
}

// NewReport creates a usage report. A zero limit means unlimited.
func NewReport(period Period, start, end time.Time, provider string, used, limit, remaining int64) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		provider:    provider,
		tokensUsed:  used,
		limit:       limit,
		remaining:   remaining,
	}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the first instant of the period.
func (r *Report) PeriodStart() time.Time { return r.periodStart }

// PeriodEnd returns the first instant after the period, when the budget resets.
func (r *Report) PeriodEnd() time.Time { return r.periodEnd }

// Provider returns the embedding provider name, empty when embedding is disabled.
func (r *Report) Provider() string { return r.provider }

// TokensUsed returns tokens consumed in the period.
func (r *Report) TokensUsed() int64 { return r.tokensUsed }

// TokensLimit returns the period limit (0 = unlimited).
func (r *Report) TokensLimit() int64 { return r.limit }

// TokensRemaining returns tokens left (-1 = unlimited).
func (r *Report) TokensRemaining() int64 { return r.remaining }

// IsExhausted reports whether a limited budget has no tokens left.
func (r *Report) IsExhausted() bool { return r.limit > 0 && r.remaining <= 0 }
