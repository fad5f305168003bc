package domain

import (
	"context"
	"errors"
)

// CompletionRequest is a single chat completion call to the language model.
type CompletionRequest struct {
	SystemPrompt string
	UserMessage  string
	Model        string
	Temperature  float32
	MaxTokens    int
}

// CompletionResult carries the generated text and token usage.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Outcome classifies how a remote generation attempt ended.
type Outcome string

const (
	// OutcomeSuccess means the model returned usable text.
	OutcomeSuccess Outcome = "success"
	// OutcomeCached means the text came from the completion cache.
	OutcomeCached Outcome = "cached"
	// OutcomeSkipped means no call was attempted (not configured, budget, rate limit).
	OutcomeSkipped Outcome = "skipped"
	// OutcomeTimeout means the call exceeded its deadline.
	OutcomeTimeout Outcome = "timeout"
	// OutcomeError means the call failed or returned a malformed payload.
	OutcomeError Outcome = "error"
)

// Completion is the result type of a remote generation attempt.
// Err is set for every outcome except success and cached.
type Completion struct {
	Outcome Outcome
	Result  CompletionResult
	Err     error
}

// OK reports whether the completion produced text usable as the answer.
func (c Completion) OK() bool {
	return (c.Outcome == OutcomeSuccess || c.Outcome == OutcomeCached) && c.Result.Text != ""
}

// ClassifyCompletionError maps a completer error to an Outcome.
func ClassifyCompletionError(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrGenerationTimeout):
		return OutcomeTimeout
	case errors.Is(err, ErrGenerationNotConfigured),
		errors.Is(err, ErrGenerationQuotaExceeded),
		errors.Is(err, ErrRateLimited):
		return OutcomeSkipped
	default:
		return OutcomeError
	}
}
