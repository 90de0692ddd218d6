package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates bridge metrics.
type Collector struct {
	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	appendsTotal       *prometheus.CounterVec
	operationsTotal    *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the bridge metrics under namespace with reg.
// A nil registerer uses the default prometheus registry.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.invocationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_invocations_total",
			Help:      "Total number of adapter invocations",
		},
		[]string{"adapter", "status"},
	)

	c.invocationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adapter_invocation_duration_seconds",
			Help:      "Adapter invocation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"adapter"},
	)

	c.appendsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_appends_total",
			Help:      "Total number of conversation log appends",
		},
		[]string{"outcome"},
	)

	c.operationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of orchestrator operations",
		},
		[]string{"operation", "outcome"},
	)

	return c
}

// ObserveInvocation records one adapter invocation outcome.
func (c *Collector) ObserveInvocation(adapter, status string, duration time.Duration) {
	c.invocationsTotal.WithLabelValues(adapter, status).Inc()
	c.invocationDuration.WithLabelValues(adapter).Observe(duration.Seconds())
}

// RecordAppend records one conversation append outcome.
func (c *Collector) RecordAppend(outcome string) {
	c.appendsTotal.WithLabelValues(outcome).Inc()
}

// RecordOperation records one orchestrator operation outcome.
func (c *Collector) RecordOperation(operation, outcome string) {
	c.operationsTotal.WithLabelValues(operation, outcome).Inc()
}
