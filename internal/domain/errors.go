package domain

import "errors"

var (
	// ErrCatalogUnavailable signals that the catalog could not be fetched.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrGenerationNotConfigured signals that no language model is configured.
	ErrGenerationNotConfigured = errors.New("generation not configured")
	// ErrGenerationFailed signals a language model failure (network, API error).
	ErrGenerationFailed = errors.New("generation failed")
	// ErrGenerationTimeout signals that the language model did not answer in time.
	ErrGenerationTimeout = errors.New("generation timeout")
	// ErrMalformedCompletion signals an empty or unparseable model response.
	ErrMalformedCompletion = errors.New("malformed completion")
	// ErrGenerationQuotaExceeded signals an exhausted token budget.
	ErrGenerationQuotaExceeded = errors.New("generation quota exceeded")
	// ErrRateLimited signals that the local rate limit rejected a remote call.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidQuery signals an unusable query (empty text, bad limit).
	ErrInvalidQuery = errors.New("invalid query")
)
