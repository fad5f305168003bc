package domain

import (
	"context"
	"testing"
)

func TestGenerationUsage_Context(t *testing.T) {
	ctx, u := NewContextWithGenerationUsage(context.Background())

	GenerationUsageFromContext(ctx).Record("remote", 30)
	GenerationUsageFromContext(ctx).Record("remote", 12)

	if u.Source != "remote" || u.TotalTokens != 42 {
		t.Errorf("usage = %+v", u)
	}
}

func TestGenerationUsage_NilSafe(t *testing.T) {
	u := GenerationUsageFromContext(context.Background())
	if u != nil {
		t.Fatal("expected nil without collector")
	}
	u.Record("fallback", 1)
}
