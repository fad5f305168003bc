package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/catalograg/internal/config"
	"github.com/kailas-cloud/catalograg/internal/db"
	dbRedis "github.com/kailas-cloud/catalograg/internal/db/redis"
	"github.com/kailas-cloud/catalograg/internal/embedding"
	"github.com/kailas-cloud/catalograg/internal/index"
	logpkg "github.com/kailas-cloud/catalograg/internal/logger"
	"github.com/kailas-cloud/catalograg/internal/metrics"
	budgetrepo "github.com/kailas-cloud/catalograg/internal/repository/budget"
	"github.com/kailas-cloud/catalograg/internal/repository/completioncache"
	catalogTransport "github.com/kailas-cloud/catalograg/internal/transport/catalog"
	chiTransport "github.com/kailas-cloud/catalograg/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/catalograg/internal/transport/openai"
	"github.com/kailas-cloud/catalograg/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/catalograg/internal/usecase/health"
	queryuc "github.com/kailas-cloud/catalograg/internal/usecase/query"
	refreshuc "github.com/kailas-cloud/catalograg/internal/usecase/refresh"
	usageuc "github.com/kailas-cloud/catalograg/internal/usecase/usage"
	"github.com/kailas-cloud/catalograg/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting catalograg API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("catalog_url", cfg.Catalog.BaseURL),
		zap.Bool("llm_enabled", cfg.LLM.Enabled()),
		zap.Bool("cache_enabled", cfg.Cache.Enabled()),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterGenerationMetrics()
	metrics.RegisterIndexMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional Redis: completion cache and persistent budget counters
	var store db.Store
	if cfg.Cache.Enabled() {
		store = connectStore(ctx, cfg.Cache, logger)
		defer store.Close()
	}

	// Similarity index and catalog refresh
	idx := index.New(embedding.New(cfg.RAG.Vocabulary), logpkg.Component(logger, "index"))

	catalogClient := catalogTransport.NewClient(catalogTransport.Config{
		BaseURL: cfg.Catalog.BaseURL,
		Timeout: time.Duration(cfg.Catalog.TimeoutSec) * time.Second,
		Logger:  logpkg.Component(logger, "catalog"),
	})

	refresher := refreshuc.New(
		catalogClient, idx,
		time.Duration(cfg.RAG.RefreshIntervalSec)*time.Second,
		logpkg.Component(logger, "refresh"),
	)
	if err := refresher.Start(ctx); err != nil {
		logger.Fatal("Failed to start catalog refresh", zap.Error(err))
	}
	defer refresher.Stop()

	// Generation: remote completer (optional) -> cache -> budget -> rate limit -> fallback
	gen, llmChecker, budget := buildGenerator(ctx, cfg, store, logger)

	querySvc := queryuc.New(idx, gen, refresher, cfg.RAG.TopK, logpkg.Component(logger, "query"))

	healthSvc := healthuc.New(idx, catalogClient)
	if llmChecker != nil {
		healthSvc.WithLLM(llmChecker)
	}
	if store != nil {
		healthSvc.WithCache(store)
	}

	server := chiTransport.NewServer(querySvc, healthSvc, chiTransport.Limits{
		DefaultRecommend: cfg.RAG.RecommendLimit,
		MaxRecommend:     cfg.RAG.MaxRecommendLimit,
		DefaultSearchK:   cfg.RAG.TopK,
		MaxSearchK:       cfg.RAG.MaxRecommendLimit,
	}, logger)

	// nil *BudgetTracker must stay a nil interface
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	server.WithUsage(usageuc.New(budgetReader, cfg.LLM.Provider))

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func connectStore(ctx context.Context, cacheCfg config.CacheConfig, logger *zap.Logger) db.Store {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cacheCfg.Addrs,
		Password: cacheCfg.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}

	if err := store.WaitForReady(ctx, time.Duration(cacheCfg.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache not ready", zap.Error(err))
	}
	logger.Info("Connected to cache", zap.Strings("addrs", cacheCfg.Addrs))
	return store
}

// buildGenerator assembles the generation chain. Without an API key the
// generator has no completer and always answers from the template fallback.
func buildGenerator(
	ctx context.Context, cfg config.Config, store db.Store, logger *zap.Logger,
) (*generation.Generator, healthuc.LLMChecker, *generation.BudgetTracker) {
	genLogger := logpkg.Component(logger, "generation")
	genCfg := generation.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
	}

	if !cfg.LLM.Enabled() {
		logger.Warn("LLM API key not configured, answers use the template fallback")
		return generation.New(nil, genCfg, genLogger), nil, nil
	}

	completer := openaiTransport.NewCompleter(&openaiTransport.Config{
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Provider: cfg.LLM.Provider,
		Logger:   genLogger,
	})
	gen := generation.New(completer, genCfg, genLogger)
	var budget *generation.BudgetTracker

	if store != nil {
		gen.WithCache(completioncache.New(
			store, cfg.Cache.KeyPrefix,
			time.Duration(cfg.Cache.TTLSec)*time.Second,
			metrics.CompletionCacheTotal, genLogger,
		))
	}

	if cfg.Budget.Enabled() {
		action := generation.BudgetActionWarn
		if cfg.Budget.Action == "reject" {
			action = generation.BudgetActionReject
		}
		budget = generation.NewBudgetTracker(
			cfg.LLM.Provider, cfg.Budget.DailyTokenLimit, cfg.Budget.MonthlyTokenLimit, action, genLogger,
		).WithKeyPrefix(cfg.Cache.KeyPrefix).WithRemainingGauge(metrics.GenerationBudgetTokensRemaining)
		if store != nil {
			// Loads today's and this month's counters from the store.
			budget.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
		}
		gen.WithBudget(budget)
	}

	if cfg.LLM.RequestsPerSecond > 0 {
		gen.WithLimiter(rate.NewLimiter(rate.Limit(cfg.LLM.RequestsPerSecond), cfg.LLM.Burst))
	}

	logger.Info("Generator created",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.Bool("cache", store != nil),
		zap.Bool("budget", cfg.Budget.Enabled()),
		zap.Float64("rps", cfg.LLM.RequestsPerSecond),
	)
	return gen, completer, budget
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorResponseCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			}
			if src := ww.Header().Get("X-Answer-Source"); src != "" {
				fields = append(fields, zap.String("answer_source", src))
			}
			reqLogger.Info("http_request", fields...)
		})
	}
}
