package health

import "context"

// Pinger checks availability of a dependency (catalog, cache).
type Pinger interface {
	Ping(ctx context.Context) error
}

// LLMChecker checks language model provider availability.
type LLMChecker interface {
	HealthCheck(ctx context.Context) error
}

// DocumentCounter reports the index size.
type DocumentCounter interface {
	Len() int
}
