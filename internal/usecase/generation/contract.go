package generation

import (
	"context"

	"github.com/kailas-cloud/catalograg/internal/domain"
)

// Completer calls the remote language model.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error)
}

// Cache stores successful completions.
type Cache interface {
	Get(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, bool)
	Put(ctx context.Context, req domain.CompletionRequest, res domain.CompletionResult)
}

// BudgetChecker enforces the token budget of remote calls.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
}

// Limiter throttles remote calls. *rate.Limiter satisfies it.
type Limiter interface {
	Allow() bool
}
