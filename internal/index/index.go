// Package index holds the in-memory similarity index over catalog documents.
//
// Documents are immutable and stored as pointers in a sync.Map, so replacing a
// key is a single atomic swap: a concurrent reader sees either the old or the
// new document in full. No global lock is taken on the read or write path.
package index

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/embedding"
	"github.com/kailas-cloud/catalograg/internal/metrics"
)

// Embedder vectorizes text into fixed-length vectors.
type Embedder interface {
	Embed(text string) []float64
}

// ScoredDocument pairs a document with its similarity to a query.
type ScoredDocument struct {
	Document domain.Document
	Score    float64
}

// Index is a concurrent keyed store of documents with brute-force cosine search.
type Index struct {
	docs     sync.Map // string -> *domain.Document
	size     atomic.Int64
	embedder Embedder
	logger   *zap.Logger
}

// New creates an empty index.
func New(embedder Embedder, logger *zap.Logger) *Index {
	return &Index{embedder: embedder, logger: logger}
}

// Upsert embeds text and stores or replaces the document at id.
// A new id also moves the documents gauge.
func (x *Index) Upsert(id, text string, item *domain.Item) {
	doc := domain.NewDocument(id, text, x.embedder.Embed(text), item)
	if _, loaded := x.docs.Swap(id, &doc); !loaded {
		metrics.IndexDocuments.Set(float64(x.size.Add(1)))
	}
}

// ReplaceAll upserts every item of a catalog snapshot under "product_<id>".
// Ids missing from the snapshot are kept. Returns the number of upserted items.
func (x *Index) ReplaceAll(items []domain.Item) int {
	n := 0
	for i := range items {
		item := items[i]
		id, ok := item.DocumentID()
		if !ok {
			x.logger.Warn("Skipping catalog item without id", zap.String("name", item.Name))
			continue
		}
		x.Upsert(id, item.EmbeddingText(), &item)
		n++
	}
	return n
}

// Search returns up to k documents ranked by descending cosine similarity to query.
// Ties keep map iteration order, which is not stable between calls.
func (x *Index) Search(query string, k int) []domain.Document {
	scored := x.SearchScored(query, k)
	out := make([]domain.Document, len(scored))
	for i, s := range scored {
		out[i] = s.Document
	}
	return out
}

// SearchScored is Search keeping the similarity scores.
func (x *Index) SearchScored(query string, k int) []ScoredDocument {
	if k <= 0 || x.Len() == 0 {
		return []ScoredDocument{}
	}

	qv := x.embedder.Embed(query)

	scored := make([]ScoredDocument, 0, x.Len())
	x.docs.Range(func(_, v any) bool {
		doc := v.(*domain.Document)
		scored = append(scored, ScoredDocument{
			Document: *doc,
			Score:    embedding.CosineSimilarity(qv, doc.VectorView()),
		})
		return true
	})

	slices.SortFunc(scored, func(a, b ScoredDocument) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// Get returns the document stored at id.
func (x *Index) Get(id string) (domain.Document, bool) {
	v, ok := x.docs.Load(id)
	if !ok {
		return domain.Document{}, false
	}
	return *v.(*domain.Document), true
}

// All returns a snapshot of every stored document.
func (x *Index) All() []domain.Document {
	out := make([]domain.Document, 0, x.Len())
	x.docs.Range(func(_, v any) bool {
		out = append(out, *v.(*domain.Document))
		return true
	})
	return out
}

// Len returns the number of stored documents.
func (x *Index) Len() int {
	return int(x.size.Load())
}
