package catalograg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/db"
	dbRedis "github.com/kailas-cloud/catalograg/internal/db/redis"
	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/embedding"
	"github.com/kailas-cloud/catalograg/internal/index"
	"github.com/kailas-cloud/catalograg/internal/metrics"
	budgetrepo "github.com/kailas-cloud/catalograg/internal/repository/budget"
	"github.com/kailas-cloud/catalograg/internal/repository/completioncache"
	catalogTransport "github.com/kailas-cloud/catalograg/internal/transport/catalog"
	"github.com/kailas-cloud/catalograg/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/catalograg/internal/usecase/health"
	queryuc "github.com/kailas-cloud/catalograg/internal/usecase/query"
	refreshuc "github.com/kailas-cloud/catalograg/internal/usecase/refresh"
	"github.com/kailas-cloud/catalograg/internal/usecase/retrieval"
	usageuc "github.com/kailas-cloud/catalograg/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultProvider         = "openai"
	defaultModel            = "gpt-3.5-turbo"
	defaultTemperature      = 0.7
	defaultMaxTokens        = 500
	defaultTimeout          = 15 * time.Second
	defaultCacheTTL         = 10 * time.Minute
	keyPrefix               = "catalograg:"
)

// Item is a catalog product. Items without ID are never indexed.
type Item = domain.Item

// SearchHit is a ranked index entry.
type SearchHit struct {
	ID    string
	Text  string
	Score float64
	Item  *Item
}

// Внутренние интерфейсы для подмены в тестах.
type queryUseCase interface {
	Answer(ctx context.Context, q string) string
	Recommend(ctx context.Context, q string, limit int) []domain.Item
	SearchScored(q string, k int) []index.ScoredDocument
	DocumentCount() int
	RefreshNow(ctx context.Context) (int, error)
}

type loader interface {
	ReplaceAll(items []domain.Item) int
}

// Client is the catalograg SDK entry point.
type Client struct {
	store     db.Store
	loader    loader
	refresher *refreshuc.Service
	querySvc  queryUseCase
	healthSvc healthUseCase
	usageSvc  usageUseCase
	obs       *observer
}

// New creates a Client. With WithCatalog the index is filled before New
// returns; a catalog that is down at that point is logged, not fatal.
// The provided context bounds the Redis readiness check and the first refresh.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		provider:        defaultProvider,
		model:           defaultModel,
		temperature:     defaultTemperature,
		maxTokens:       defaultMaxTokens,
		timeout:         defaultTimeout,
		cacheTTL:        defaultCacheTTL,
		topK:            retrieval.DefaultTopK,
		refreshInterval: refreshuc.DefaultInterval,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	applyDefaults(cfg)

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if len(cfg.redisAddrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.redisAddrs,
			Password: cfg.redisPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("catalograg: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("catalograg: redis not ready: %w", err)
		}
		store = s
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return c, nil
}

// applyDefaults restores defaults erased by zero-valued options.
func applyDefaults(cfg *clientConfig) {
	if cfg.provider == "" {
		cfg.provider = defaultProvider
	}
	if cfg.model == "" {
		cfg.model = defaultModel
	}
	if cfg.temperature == 0 {
		cfg.temperature = defaultTemperature
	}
	if cfg.maxTokens <= 0 {
		cfg.maxTokens = defaultMaxTokens
	}
	if cfg.timeout <= 0 {
		cfg.timeout = defaultTimeout
	}
	if cfg.cacheTTL <= 0 {
		cfg.cacheTTL = defaultCacheTTL
	}
	if cfg.topK <= 0 {
		cfg.topK = retrieval.DefaultTopK
	}
	if cfg.refreshInterval <= 0 {
		cfg.refreshInterval = refreshuc.DefaultInterval
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	// Internal services log through zap; SDK callers observe through slog.
	logger := zap.NewNop()

	idx := index.New(embedding.New(cfg.vocabulary), logger)
	healthSvc := healthuc.New(idx, nil)

	var refresher *refreshuc.Service
	var refreshNow queryuc.Refresher
	if cfg.catalogURL != "" {
		catalogClient := catalogTransport.NewClient(catalogTransport.Config{
			BaseURL: cfg.catalogURL,
			Timeout: cfg.catalogTimeout,
			Logger:  logger,
		})
		refresher = refreshuc.New(catalogClient, idx, cfg.refreshInterval, logger)
		if err := refresher.Start(ctx); err != nil {
			return nil, fmt.Errorf("catalograg: start refresh: %w", err)
		}
		refreshNow = refresher
		healthSvc = healthuc.New(idx, catalogClient)
	}
	if store != nil {
		healthSvc.WithCache(store)
	}

	gen, budget := wireGenerator(ctx, store, cfg, logger)

	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}

	return &Client{
		store:     store,
		loader:    idx,
		refresher: refresher,
		querySvc:  queryuc.New(idx, gen, refreshNow, cfg.topK, logger),
		healthSvc: healthSvc,
		usageSvc:  usageuc.New(budgetReader, cfg.provider),
		obs:       obs,
	}, nil
}

func wireGenerator(
	ctx context.Context, store db.Store, cfg *clientConfig, logger *zap.Logger,
) (*generation.Generator, *generation.BudgetTracker) {
	genCfg := generation.Config{
		Provider:    cfg.provider,
		Model:       cfg.model,
		Temperature: cfg.temperature,
		MaxTokens:   cfg.maxTokens,
		Timeout:     cfg.timeout,
	}
	if cfg.completer == nil {
		return generation.New(nil, genCfg, logger), nil
	}

	gen := generation.New(&completerAdapter{inner: cfg.completer}, genCfg, logger)
	if store != nil {
		gen.WithCache(completioncache.New(store, keyPrefix, cfg.cacheTTL, metrics.CompletionCacheTotal, logger))
	}

	if cfg.dailyTokens <= 0 && cfg.monthlyTokens <= 0 {
		return gen, nil
	}
	action := generation.BudgetActionWarn
	if cfg.rejectOverrun {
		action = generation.BudgetActionReject
	}
	budget := generation.NewBudgetTracker(cfg.provider, cfg.dailyTokens, cfg.monthlyTokens, action, logger).
		WithKeyPrefix(keyPrefix)
	if store != nil {
		budget.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
	}
	gen.WithBudget(budget)
	return gen, budget
}

// Close stops the scheduled refresh and releases the Redis connection.
func (c *Client) Close() {
	if c.refresher != nil {
		c.refresher.Stop()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Answer replies to a free-text question. It never fails: generation
// problems degrade to the templated answer, internal faults to an apology.
func (c *Client) Answer(ctx context.Context, question string) string {
	start := time.Now()
	ctx, usage := domain.NewContextWithGenerationUsage(ctx)

	answer := c.querySvc.Answer(ctx, question)

	source := usage.Source
	if source == "" {
		source = outcomeApology
	}
	c.obs.done("answer", source, start, nil)
	return answer
}

// Recommend returns up to limit products closest to query.
func (c *Client) Recommend(ctx context.Context, query string, limit int) []Item {
	start := time.Now()
	items := c.querySvc.Recommend(ctx, query, limit)
	c.obs.done("recommend", countOutcome(len(items)), start, nil)
	return items
}

// Search returns the k closest index entries with their similarity.
func (c *Client) Search(query string, k int) []SearchHit {
	start := time.Now()
	scored := c.querySvc.SearchScored(query, k)

	hits := make([]SearchHit, 0, len(scored))
	for _, s := range scored {
		h := SearchHit{ID: s.Document.ID(), Text: s.Document.Text(), Score: s.Score}
		if it, ok := s.Document.Item(); ok {
			h.Item = &it
		}
		hits = append(hits, h)
	}
	c.obs.done("search", countOutcome(len(hits)), start, nil)
	return hits
}

// Refresh re-reads the catalog now and returns the number of upserted items.
// Without WithCatalog it fails with ErrCatalogUnavailable.
func (c *Client) Refresh(ctx context.Context) (int, error) {
	start := time.Now()

	n, err := c.querySvc.RefreshNow(ctx)
	if err != nil {
		err = fmt.Errorf("refresh: %w", err)
		c.obs.done("refresh", outcomeError, start, err)
		return 0, err
	}
	c.obs.indexed(c.querySvc.DocumentCount())
	c.obs.done("refresh", outcomeOK, start, nil)
	return n, nil
}

// Load indexes items directly, bypassing the catalog service.
// Items without ID are skipped; the count of indexed items is returned.
func (c *Client) Load(items []Item) (int, error) {
	if len(items) == 0 {
		return 0, errors.New("catalograg: no items to load")
	}
	start := time.Now()

	n := c.loader.ReplaceAll(items)
	c.obs.indexed(c.querySvc.DocumentCount())
	c.obs.done("load", countOutcome(n), start, nil)
	return n, nil
}

// Documents returns the number of indexed products.
func (c *Client) Documents() int {
	return c.querySvc.DocumentCount()
}
