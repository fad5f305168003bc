// Package query is the facade of the engine: answers, recommendations and
// diagnostics over the index, generation and refresh components.
package query

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/index"
	"github.com/kailas-cloud/catalograg/internal/logger"
	"github.com/kailas-cloud/catalograg/internal/metrics"
	"github.com/kailas-cloud/catalograg/internal/usecase/retrieval"
)

// Service wires retrieval, generation and refresh behind one surface.
type Service struct {
	index     Index
	retrieval *retrieval.Service
	generator Generator
	refresher Refresher
	logger    *zap.Logger
}

// New creates the facade. topK <= 0 selects retrieval.DefaultTopK.
func New(idx Index, gen Generator, refresher Refresher, topK int, logger *zap.Logger) *Service {
	return &Service{
		index:     idx,
		retrieval: retrieval.New(idx, topK),
		generator: gen,
		refresher: refresher,
		logger:    logger,
	}
}

// Answer retrieves the top documents for q and generates a reply.
// It never fails: any panic below is turned into ApologyAnswer.
func (s *Service) Answer(ctx context.Context, q string) (answer string) {
	log := logger.FromContextOr(ctx, s.logger)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Query processing panicked",
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			metrics.QueriesTotal.WithLabelValues("answer", "error").Inc()
			answer = ApologyAnswer
		}
	}()

	docs := s.retrieval.Retrieve(ctx, q, 0)
	log.Info("Retrieved documents", zap.Int("count", len(docs)))

	answer = s.generator.Generate(ctx, q, retrieval.AssembleContext(docs))

	result := "hit"
	if len(docs) == 0 {
		result = "empty"
	}
	metrics.QueriesTotal.WithLabelValues("answer", result).Inc()
	return answer
}

// Recommend returns the catalog items of the top limit documents for q.
// Documents without an item or without an item id are dropped.
func (s *Service) Recommend(ctx context.Context, q string, limit int) []domain.Item {
	var docs []domain.Document
	if limit > 0 {
		docs = s.retrieval.Retrieve(ctx, q, limit)
	}

	items := make([]domain.Item, 0, len(docs))
	for _, d := range docs {
		item, ok := d.Item()
		if !ok || !item.HasID() {
			continue
		}
		items = append(items, item)
	}

	result := "hit"
	if len(items) == 0 {
		result = "empty"
	}
	metrics.QueriesTotal.WithLabelValues("recommend", result).Inc()
	return items
}

// AllDocuments returns a snapshot of the index.
func (s *Service) AllDocuments() []domain.Document {
	return s.index.All()
}

// SearchScored returns up to k documents with their similarity to q.
func (s *Service) SearchScored(q string, k int) []index.ScoredDocument {
	return s.index.SearchScored(q, k)
}

// DocumentCount returns the index size.
func (s *Service) DocumentCount() int {
	return s.index.Len()
}

// RefreshNow reloads the catalog. Returns the number of upserted items.
func (s *Service) RefreshNow(ctx context.Context) (int, error) {
	if s.refresher == nil {
		return 0, fmt.Errorf("refresh: %w", domain.ErrCatalogUnavailable)
	}
	n, err := s.refresher.RefreshNow(ctx)
	if err != nil {
		return 0, fmt.Errorf("refresh: %w", err)
	}
	return n, nil
}

// Greeting returns the welcome text.
func (s *Service) Greeting(name string) string { return Greeting(name) }

// Help returns the usage text.
func (s *Service) Help() string { return Help() }
