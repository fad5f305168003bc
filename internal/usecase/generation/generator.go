// Package generation produces the natural-language answer of a query:
// a remote chat completion when available, a deterministic template otherwise.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/metrics"
)

// Answer sources recorded into domain.GenerationUsage.
const (
	SourceRemote   = "remote"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// cacheTimeout bounds each completion cache lookup or write.
const cacheTimeout = 250 * time.Millisecond

// Config holds the remote call parameters.
type Config struct {
	Provider    string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Generator runs the two-tier generation.
type Generator struct {
	completer Completer
	cfg       Config
	cache     Cache
	budget    BudgetChecker
	limiter   Limiter
	logger    *zap.Logger
}

// New creates a Generator. A nil completer disables the remote tier.
func New(completer Completer, cfg Config, logger *zap.Logger) *Generator {
	return &Generator{
		completer: completer,
		cfg:       cfg,
		logger:    logger,
	}
}

// WithCache enables the completion cache.
func (g *Generator) WithCache(c Cache) *Generator {
	g.cache = c
	return g
}

// WithBudget enables token budget enforcement.
func (g *Generator) WithBudget(b BudgetChecker) *Generator {
	g.budget = b
	return g
}

// WithLimiter enables rate limiting of remote calls.
func (g *Generator) WithLimiter(l Limiter) *Generator {
	g.limiter = l
	return g
}

// Configured reports whether the remote tier is available.
func (g *Generator) Configured() bool {
	return g.completer != nil
}

// Generate returns the remote answer when usable, the templated fallback otherwise.
// It never fails.
func (g *Generator) Generate(ctx context.Context, query, productContext string) string {
	usage := domain.GenerationUsageFromContext(ctx)

	c := g.Remote(ctx, query, productContext)
	if c.OK() {
		if c.Outcome == domain.OutcomeCached {
			usage.Record(SourceCache, 0)
		} else {
			usage.Record(SourceRemote, c.Result.TotalTokens)
		}
		return c.Result.Text
	}

	metrics.GenerationFallbacksTotal.WithLabelValues(fallbackReason(c)).Inc()
	if c.Outcome != domain.OutcomeSkipped {
		g.logger.Warn("Remote generation failed, using fallback",
			zap.String("outcome", string(c.Outcome)),
			zap.Error(c.Err),
		)
	}
	usage.Record(SourceFallback, 0)
	return Fallback(productContext)
}

// Remote attempts the remote tier only and reports how it ended.
func (g *Generator) Remote(ctx context.Context, query, productContext string) domain.Completion {
	if g.completer == nil {
		return g.finish(domain.Completion{Outcome: domain.OutcomeSkipped, Err: domain.ErrGenerationNotConfigured})
	}

	req := domain.CompletionRequest{
		SystemPrompt: SystemPrompt(productContext),
		UserMessage:  query,
		Model:        g.cfg.Model,
		Temperature:  g.cfg.Temperature,
		MaxTokens:    g.cfg.MaxTokens,
	}

	if g.cache != nil {
		if res, ok := g.cacheGet(ctx, req); ok {
			return g.finish(domain.Completion{Outcome: domain.OutcomeCached, Result: res})
		}
	}

	if g.budget != nil {
		if err := g.budget.Check(ctx); err != nil {
			return g.finish(domain.Completion{
				Outcome: domain.ClassifyCompletionError(err),
				Err:     fmt.Errorf("budget check: %w", err),
			})
		}
	}

	if g.limiter != nil && !g.limiter.Allow() {
		return g.finish(domain.Completion{Outcome: domain.OutcomeSkipped, Err: domain.ErrRateLimited})
	}

	callCtx := ctx
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := g.completer.Complete(callCtx, req)
	duration := time.Since(start)

	if err == nil && res.Text == "" {
		err = domain.ErrMalformedCompletion
	}
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrGenerationTimeout) {
		err = fmt.Errorf("%w: %w", domain.ErrGenerationTimeout, err)
	}
	if err != nil {
		return g.finish(domain.Completion{Outcome: domain.ClassifyCompletionError(err), Err: err})
	}

	if g.budget != nil {
		g.budget.Record(int64(res.TotalTokens))
	}
	if g.cache != nil {
		g.cachePut(ctx, req, res)
	}

	g.logger.Debug("Remote generation completed",
		zap.String("provider", g.cfg.Provider),
		zap.String("model", g.cfg.Model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Int("completion_tokens", res.CompletionTokens),
	)

	return g.finish(domain.Completion{Outcome: domain.OutcomeSuccess, Result: res})
}

func (g *Generator) cacheGet(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	return g.cache.Get(ctx, req)
}

// cachePut is detached from the caller: the answer is already paid for.
func (g *Generator) cachePut(ctx context.Context, req domain.CompletionRequest, res domain.CompletionResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()
	g.cache.Put(ctx, req, res)
}

func (g *Generator) finish(c domain.Completion) domain.Completion {
	metrics.GenerationRequestsTotal.WithLabelValues(g.cfg.Provider, g.cfg.Model, string(c.Outcome)).Inc()
	return c
}

func fallbackReason(c domain.Completion) string {
	switch {
	case errors.Is(c.Err, domain.ErrGenerationNotConfigured):
		return "not_configured"
	case errors.Is(c.Err, domain.ErrGenerationQuotaExceeded):
		return "budget"
	case errors.Is(c.Err, domain.ErrRateLimited):
		return "rate_limited"
	case c.Outcome == domain.OutcomeTimeout:
		return "timeout"
	case errors.Is(c.Err, domain.ErrMalformedCompletion):
		return "malformed"
	default:
		return "error"
	}
}
