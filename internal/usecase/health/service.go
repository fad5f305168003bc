package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; answers still come from the fallback or a stale index.
	Degraded Status = "degraded"
	// Unhealthy indicates the service cannot answer from catalog data.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckEmpty indicates an index without documents.
	CheckEmpty CheckResult = "empty"
	// CheckDisabled indicates an optional component that is not configured.
	CheckDisabled CheckResult = "disabled"
)

// Report aggregates health check results.
type Report struct {
	Status    Status
	Checks    map[string]CheckResult
	Documents int
}

// Service coordinates health checks.
type Service struct {
	index   DocumentCounter
	catalog Pinger
	llm     LLMChecker
	cache   Pinger
}

// New creates a Service. catalog can be nil.
func New(index DocumentCounter, catalog Pinger) *Service {
	return &Service{index: index, catalog: catalog}
}

// WithLLM adds the language model check. Without it the check reports disabled.
func (s *Service) WithLLM(llm LLMChecker) *Service {
	s.llm = llm
	return s
}

// WithCache adds the cache check.
func (s *Service) WithCache(cache Pinger) *Service {
	s.cache = cache
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	docs := s.index.Len()
	if docs > 0 {
		checks["index"] = CheckOK
	} else {
		checks["index"] = CheckEmpty
	}

	if s.catalog != nil {
		checks["catalog"] = ping(ctx, s.catalog.Ping)
	}

	if s.llm != nil {
		checks["llm"] = ping(ctx, s.llm.HealthCheck)
	} else {
		checks["llm"] = CheckDisabled
	}

	if s.cache != nil {
		checks["cache"] = ping(ctx, s.cache.Ping)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError || v == CheckEmpty {
			status = Degraded
			break
		}
	}
	if docs == 0 && checks["catalog"] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks, Documents: docs}
}

func ping(ctx context.Context, f func(context.Context) error) CheckResult {
	if err := f(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
