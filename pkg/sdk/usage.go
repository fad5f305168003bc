package catalograg

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/catalograg/internal/domain/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport contains generation token usage for a time period.
// Period bounds are zero for PeriodTotal.
type UsageReport struct {
	Period      UsagePeriod
	PeriodStart time.Time
	PeriodEnd   time.Time
	Provider    string
	Tokens      int64
	Budget      BudgetStatus
}

// BudgetStatus tracks token quota state. TokensRemaining is -1 when unlimited.
type BudgetStatus struct {
	TokensLimit     int64
	TokensRemaining int64
	IsExhausted     bool
	ResetsAt        time.Time
}

// Usage returns a generation usage report for the given period.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	start := time.Now()

	report := c.usageSvc.GetReport(ctx, domusage.ParsePeriod(string(period)))
	b := report.Budget()

	outcome := outcomeOK
	if b.IsExhausted() {
		outcome = outcomeOverrun
	}
	c.obs.done("usage", outcome, start, nil)

	return UsageReport{
		Period:      UsagePeriod(report.Period()),
		PeriodStart: millisToTime(report.PeriodStart()),
		PeriodEnd:   millisToTime(report.PeriodEnd()),
		Provider:    report.Provider(),
		Tokens:      report.Tokens(),
		Budget: BudgetStatus{
			TokensLimit:     b.TokensLimit(),
			TokensRemaining: b.TokensRemaining(),
			IsExhausted:     b.IsExhausted(),
			ResetsAt:        millisToTime(b.ResetsAt()),
		},
	}
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// usageUseCase is the internal interface for usage reports.
type usageUseCase interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}
