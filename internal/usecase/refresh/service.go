// Package refresh keeps the similarity index in sync with the catalog:
// once at startup, then on a fixed interval, and on demand.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/metrics"
)

// DefaultInterval is the refresh period when none is configured.
const DefaultInterval = 5 * time.Minute

// Run triggers, used as metric labels.
const (
	TriggerStartup   = "startup"
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

const (
	stopTimeout = 30 * time.Second
	// runTimeout bounds a shared run once it no longer follows any caller's context.
	runTimeout = 2 * time.Minute
)

// Status describes the last refresh attempts.
type Status struct {
	LastSuccess time.Time
	LastError   error
	LastCount   int
}

// Service runs catalog refreshes. Concurrent runs collapse into one.
type Service struct {
	source   CatalogSource
	index    Index
	interval time.Duration
	cron     *cron.Cron
	group    singleflight.Group
	logger   *zap.Logger

	mu      sync.RWMutex
	status  Status
	running bool
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New creates a refresh service. interval <= 0 selects DefaultInterval.
func New(source CatalogSource, idx Index, interval time.Duration, logger *zap.Logger) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		source:   source,
		index:    idx,
		interval: interval,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start performs the initial refresh synchronously, then schedules the periodic one.
// A failed initial refresh is logged and leaves the index empty; it is not fatal.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("refresh scheduler already running")
	}
	s.baseCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.running = true
	s.mu.Unlock()

	if _, err := s.run(ctx, TriggerStartup); err != nil {
		s.logger.Error("Initial catalog load failed, starting with an empty index", zap.Error(err))
	}

	spec := "@every " + s.interval.String()
	if _, err := s.cron.AddFunc(spec, func() {
		_, _ = s.run(s.baseCtx, TriggerScheduled)
	}); err != nil {
		s.mu.Lock()
		s.running = false
		s.cancel()
		s.mu.Unlock()
		return fmt.Errorf("schedule refresh %q: %w", spec, err)
	}
	s.cron.Start()

	s.logger.Info("Catalog refresh scheduled", zap.Duration("interval", s.interval))
	return nil
}

// Stop halts the schedule and waits for an in-flight scheduled run.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Catalog refresh stopped")
	case <-time.After(stopTimeout):
		s.logger.Warn("Catalog refresh stop timed out")
	}
}

// RefreshNow fetches the catalog and upserts it into the index.
// Returns the number of upserted items. On failure the index is left untouched.
func (s *Service) RefreshNow(ctx context.Context) (int, error) {
	return s.run(ctx, TriggerManual)
}

// Status returns the outcome of the last attempts.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// run joins or starts the shared refresh. The fetch itself is detached from
// ctx so a caller that gives up does not fail the others; the caller still
// returns as soon as its own ctx is done.
func (s *Service) run(ctx context.Context, trigger string) (int, error) {
	ch := s.group.DoChan("refresh", func() (any, error) {
		runCtx, cancel := s.runContext(ctx)
		defer cancel()
		return s.refresh(runCtx, trigger)
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("Refresh joined an in-flight run", zap.String("trigger", trigger))
		}
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int), nil
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, ctx.Err())
	}
}

// runContext keeps ctx values, drops its cancellation, and ends on
// runTimeout or Stop.
func (s *Service) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runTimeout)

	s.mu.RLock()
	base := s.baseCtx
	s.mu.RUnlock()
	if base == nil {
		return runCtx, cancel
	}
	stop := context.AfterFunc(base, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *Service) refresh(ctx context.Context, trigger string) (int, error) {
	start := time.Now()

	items, err := s.source.ListAllItems(ctx)
	if err != nil {
		metrics.RefreshRunsTotal.WithLabelValues(trigger, "error").Inc()
		s.setStatus(func(st *Status) { st.LastError = err })
		s.logger.Error("Catalog refresh failed",
			zap.String("trigger", trigger),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return 0, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}

	n := s.index.ReplaceAll(items)
	duration := time.Since(start)

	metrics.RefreshRunsTotal.WithLabelValues(trigger, "ok").Inc()
	metrics.RefreshDuration.Observe(duration.Seconds())

	s.setStatus(func(st *Status) {
		st.LastSuccess = time.Now()
		st.LastError = nil
		st.LastCount = n
	})

	s.logger.Info("Catalog refreshed",
		zap.String("trigger", trigger),
		zap.Int("fetched", len(items)),
		zap.Int("indexed", n),
		zap.Int("documents", s.index.Len()),
		zap.Duration("duration", duration),
	)
	return n, nil
}

func (s *Service) setStatus(f func(*Status)) {
	s.mu.Lock()
	f(&s.status)
	s.mu.Unlock()
}
