package refresh

import (
	"context"

	"github.com/kailas-cloud/catalograg/internal/domain"
)

// CatalogSource fetches the full catalog snapshot.
type CatalogSource interface {
	ListAllItems(ctx context.Context) ([]domain.Item, error)
}

// Index receives catalog snapshots.
type Index interface {
	ReplaceAll(items []domain.Item) int
	Len() int
}
