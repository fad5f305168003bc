package query

import (
	"context"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/index"
)

// Index is the read side of the similarity index.
type Index interface {
	Search(query string, k int) []domain.Document
	SearchScored(query string, k int) []index.ScoredDocument
	All() []domain.Document
	Len() int
}

// Generator turns a query and its assembled context into an answer.
type Generator interface {
	Generate(ctx context.Context, query, productContext string) string
}

// Refresher reloads the catalog into the index.
type Refresher interface {
	RefreshNow(ctx context.Context) (int, error)
}
