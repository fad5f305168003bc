package catalograg

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation outcomes reported by the observer. Answers are labeled by
// where the text came from (remote, cache, fallback) instead.
const (
	outcomeHit     = "hit"
	outcomeEmpty   = "empty"
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeApology = "apology"
	outcomeOverrun = "exhausted"
)

type sdkCollectors struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	documents  prometheus.Gauge
}

func newSDKCollectors(reg prometheus.Registerer) (*sdkCollectors, error) {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalograg",
		Subsystem: "sdk",
		Name:      "operations_total",
		Help:      "SDK operations by outcome (answer source, hit/empty, ok/error).",
	}, []string{"operation", "outcome"})
	dur := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "catalograg",
		Subsystem: "sdk",
		Name:      "operation_duration_seconds",
		Help:      "SDK operation duration in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 5, 15, 30},
	}, []string{"operation"})
	docs := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "catalograg",
		Subsystem: "sdk",
		Name:      "index_documents",
		Help:      "Documents held by the embedded index after the last load or refresh.",
	})

	c := &sdkCollectors{}
	var err error
	if c.operations, err = register(reg, ops); err != nil {
		return nil, err
	}
	if c.duration, err = register(reg, dur); err != nil {
		return nil, err
	}
	if c.documents, err = register(reg, docs); err != nil {
		return nil, err
	}
	return c, nil
}

// register adds c to reg. Several clients may share one registry, so an
// identical collector already present is returned in place of c.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, fmt.Errorf("catalograg: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("catalograg: metric registered as %T", are.ExistingCollector)
	}
	return existing, nil
}

// observer reports SDK operations to the optional slog logger and registry.
type observer struct {
	logger     *slog.Logger
	collectors *sdkCollectors
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg == nil {
		return o, nil
	}
	c, err := newSDKCollectors(reg)
	if err != nil {
		return nil, err
	}
	o.collectors = c
	return o, nil
}

// done records one finished operation. err, when set, is logged at warn.
func (o *observer) done(op, outcome string, start time.Time, err error) {
	if o == nil {
		return
	}
	elapsed := time.Since(start)

	if o.collectors != nil {
		o.collectors.operations.WithLabelValues(op, outcome).Inc()
		o.collectors.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	}
	if o.logger == nil {
		return
	}
	if err != nil {
		o.logger.Warn("catalograg operation failed",
			slog.String("op", op),
			slog.String("outcome", outcome),
			slog.Duration("duration", elapsed),
			slog.Any("error", err),
		)
		return
	}
	o.logger.Debug("catalograg operation",
		slog.String("op", op),
		slog.String("outcome", outcome),
		slog.Duration("duration", elapsed),
	)
}

// indexed publishes the index size after a load or refresh.
func (o *observer) indexed(docs int) {
	if o == nil || o.collectors == nil {
		return
	}
	o.collectors.documents.Set(float64(docs))
}

func countOutcome(n int) string {
	if n == 0 {
		return outcomeEmpty
	}
	return outcomeHit
}
