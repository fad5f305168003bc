package domain

import "context"

type generationUsageKey struct{}

// GenerationUsage collects how a single request's answer was produced.
// The handler puts a mutable pointer into the context before calling the facade;
// the generator writes to it; the handler reads it for response headers.
type GenerationUsage struct {
	Source      string // "remote", "cache" or "fallback"
	TotalTokens int
}

// NewContextWithGenerationUsage returns a context with an embedded usage collector.
func NewContextWithGenerationUsage(ctx context.Context) (context.Context, *GenerationUsage) {
	u := &GenerationUsage{}
	return context.WithValue(ctx, generationUsageKey{}, u), u
}

// GenerationUsageFromContext extracts the usage collector. Returns nil if not set.
func GenerationUsageFromContext(ctx context.Context) *GenerationUsage {
	u, _ := ctx.Value(generationUsageKey{}).(*GenerationUsage)
	return u
}

// Record stores the answer source and consumed tokens. Safe on a nil receiver.
func (u *GenerationUsage) Record(source string, tokens int) {
	if u != nil {
		u.Source = source
		u.TotalTokens += tokens
	}
}
