package catalograg

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/catalograg/internal/domain"
)

// Completer generates an answer for a prompt.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (Completion, error)
}

// Prompt is a single chat completion call.
type Prompt struct {
	System      string
	User        string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Completion carries the generated text and token counts.
// Empty Text is treated as a failed call.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// completerAdapter wraps public Completer to satisfy the generation contract.
type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	c, err := a.inner.Complete(ctx, Prompt{
		System:      req.SystemPrompt,
		User:        req.UserMessage,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return domain.CompletionResult{}, fmt.Errorf("complete: %w", err)
	}
	return domain.CompletionResult{
		Text:             c.Text,
		PromptTokens:     c.PromptTokens,
		CompletionTokens: c.CompletionTokens,
		TotalTokens:      c.TotalTokens,
	}, nil
}
