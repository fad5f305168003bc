package usage

import "testing"

func TestNewReport(t *testing.T) {
	b := NewBudget(1000000, 615800, false, 1700000000000)

	r := NewReport(PeriodMonth, 1700000000, 1702600000, "openai", 384200, b)

	if r.Period() != PeriodMonth {
		t.Errorf("Period() = %q", r.Period())
	}
	if r.PeriodStart() != 1700000000 || r.PeriodEnd() != 1702600000 {
		t.Errorf("period bounds = %d..%d", r.PeriodStart(), r.PeriodEnd())
	}
	if r.Provider() != "openai" {
		t.Errorf("Provider() = %q", r.Provider())
	}
	if r.Tokens() != 384200 {
		t.Errorf("Tokens() = %d", r.Tokens())
	}
	if r.Budget().TokensLimit() != 1000000 || r.Budget().TokensRemaining() != 615800 {
		t.Errorf("Budget() = %+v", r.Budget())
	}
	if r.Budget().IsExhausted() || r.Budget().ResetsAt() != 1700000000000 {
		t.Errorf("Budget() = %+v", r.Budget())
	}
}

func TestParsePeriod(t *testing.T) {
	tests := map[string]Period{
		"day":   PeriodDay,
		"month": PeriodMonth,
		"total": PeriodTotal,
		"":      PeriodMonth,
		"week":  PeriodMonth,
	}
	for in, want := range tests {
		if got := ParsePeriod(in); got != want {
			t.Errorf("ParsePeriod(%q) = %q, want %q", in, got, want)
		}
	}
}
