package catalograg

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	catalogURL      string
	catalogTimeout  time.Duration
	refreshInterval time.Duration

	completer   Completer
	provider    string
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration

	dailyTokens   int64
	monthlyTokens int64
	rejectOverrun bool

	redisAddrs    []string
	redisPassword string
	cacheTTL      time.Duration

	topK       int
	vocabulary []string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithCatalog sets the catalog service base URL. Items are read from
// GET {baseURL}/products at startup and on every refresh.
// Without it the index only holds what Load puts there.
func WithCatalog(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogURL = baseURL
	})
}

// WithCatalogTimeout sets the per-request catalog timeout. Default: 10s.
func WithCatalogTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogTimeout = d
	})
}

// WithRefreshInterval sets the scheduled refresh period. Default: 5m.
func WithRefreshInterval(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.refreshInterval = d
	})
}

// WithCompleter enables remote answer generation with the given model.
// Without a completer every answer is the templated fallback.
func WithCompleter(cm Completer, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = cm
		c.model = model
	})
}

// WithProvider sets the provider label used in metrics and usage reports.
// Default: "openai".
func WithProvider(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = name
	})
}

// WithGeneration tunes the remote call. Zero values keep the defaults
// (temperature 0.7, 500 tokens, 15s).
func WithGeneration(temperature float32, maxTokens int, timeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.temperature = temperature
		c.maxTokens = maxTokens
		c.timeout = timeout
	})
}

// WithBudget caps generation tokens per UTC day and month (0 = unlimited).
// When reject is false an overrun is only logged.
func WithBudget(daily, monthly int64, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyTokens = daily
		c.monthlyTokens = monthly
		c.rejectOverrun = reject
	})
}

// WithRedis enables the completion cache and persistent budget counters.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	})
}

// WithCacheTTL sets how long cached completions live. Default: 10m.
func WithCacheTTL(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = d
	})
}

// WithTopK sets how many products feed the answer context. Default: 5.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithVocabulary replaces the embedding vocabulary.
func WithVocabulary(terms []string) Option {
	return optionFunc(func(c *clientConfig) {
		c.vocabulary = terms
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
