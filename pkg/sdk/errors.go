package catalograg

import "github.com/kailas-cloud/catalograg/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrCatalogUnavailable      = domain.ErrCatalogUnavailable
	ErrGenerationTimeout       = domain.ErrGenerationTimeout
	ErrGenerationFailed        = domain.ErrGenerationFailed
	ErrGenerationQuotaExceeded = domain.ErrGenerationQuotaExceeded
	ErrRateLimited             = domain.ErrRateLimited
)
