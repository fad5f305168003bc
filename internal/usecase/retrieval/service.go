// Package retrieval selects the catalog documents relevant to a query and
// renders them as the numbered context block consumed by generation.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/catalograg/internal/domain"
)

// DefaultTopK is the number of documents retrieved when none is requested.
const DefaultTopK = 5

// Service retrieves documents from the index.
type Service struct {
	searcher Searcher
	topK     int
}

// New creates a retrieval service. topK <= 0 selects DefaultTopK.
func New(searcher Searcher, topK int) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{searcher: searcher, topK: topK}
}

// TopK returns the configured retrieval depth.
func (s *Service) TopK() int { return s.topK }

// Retrieve returns up to k documents for query; k <= 0 uses the configured depth.
func (s *Service) Retrieve(_ context.Context, query string, k int) []domain.Document {
	if k <= 0 {
		k = s.topK
	}
	return s.searcher.Search(query, k)
}

// Context retrieves and assembles in one step.
func (s *Service) Context(ctx context.Context, query string) string {
	return AssembleContext(s.Retrieve(ctx, query, s.topK))
}

// AssembleContext renders docs as "1. <text>\n2. <text>\n..." in rank order.
// An empty list yields domain.NoMatchingProducts.
func AssembleContext(docs []domain.Document) string {
	if len(docs) == 0 {
		return domain.NoMatchingProducts
	}

	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d.Text())
	}
	return b.String()
}
