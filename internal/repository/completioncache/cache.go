// Package completioncache caches remote completions in a key-value store.
package completioncache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/db"
	"github.com/kailas-cloud/catalograg/internal/domain"
)

// store is the consumer interface for the completion cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// entry is the cached payload.
type entry struct {
	Text        string `json:"text"`
	TotalTokens int    `json:"total_tokens"`
}

// Cache stores completions keyed by a hash of model, system prompt and user message.
// Cache failures are logged and treated as misses; they never fail a query.
type Cache struct {
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a completion cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly; may be nil.
func New(s store, prefix string, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{
		store:      s,
		prefix:     prefix + "completion:",
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Get returns a cached completion for the request.
func (c *Cache) Get(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, bool) {
	key := c.Key(req)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached completion", zap.String("key", key), zap.Error(err))
		}
		c.inc("miss")
		return domain.CompletionResult{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Text == "" {
		c.logger.Warn("Discarding malformed cached completion", zap.String("key", key), zap.Error(err))
		c.inc("miss")
		return domain.CompletionResult{}, false
	}

	c.inc("hit")
	return domain.CompletionResult{Text: e.Text}, true
}

// Put stores a successful completion.
func (c *Cache) Put(ctx context.Context, req domain.CompletionRequest, res domain.CompletionResult) {
	if res.Text == "" {
		return
	}
	key := c.Key(req)

	data, err := json.Marshal(entry{Text: res.Text, TotalTokens: res.TotalTokens})
	if err != nil {
		c.logger.Warn("Failed to encode completion", zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache completion", zap.String("key", key), zap.Error(err))
	}
}

// Key derives the cache key. Temperature and max tokens are part of the key
// because they change what the model may return.
func (c *Cache) Key(req domain.CompletionRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%g\x00%d\x00%s\x00%s",
		req.Model, req.Temperature, req.MaxTokens, req.SystemPrompt, req.UserMessage)
	return c.prefix + hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
