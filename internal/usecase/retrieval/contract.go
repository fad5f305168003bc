package retrieval

import "github.com/kailas-cloud/catalograg/internal/domain"

// Searcher ranks documents by similarity to a query.
type Searcher interface {
	Search(query string, k int) []domain.Document
}
