package mempool

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "mempool"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of pending intents.
	Size metrics.Gauge
	// Number of intents evicted under capacity pressure.
	EvictedIntents metrics.Counter
	// Number of expired intents purged.
	ExpiredIntents metrics.Counter
	// Number of inserts refused because the fingerprint was present.
	DuplicateIntents metrics.Counter
	// Number of inserts refused because every entry was reserved.
	RejectedIntents metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Size: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "size",
			Help:      "Number of pending intents.",
		}, labels).With(labelsAndValues...),
		EvictedIntents: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "evicted_intents",
			Help:      "Number of intents evicted under capacity pressure.",
		}, labels).With(labelsAndValues...),
		ExpiredIntents: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "expired_intents",
			Help:      "Number of expired intents purged.",
		}, labels).With(labelsAndValues...),
		DuplicateIntents: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "duplicate_intents",
			Help:      "Number of inserts refused because the intent was already pending.",
		}, labels).With(labelsAndValues...),
		RejectedIntents: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "rejected_intents",
			Help:      "Number of inserts refused because nothing could be evicted.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Size:             discard.NewGauge(),
		EvictedIntents:   discard.NewCounter(),
		ExpiredIntents:   discard.NewCounter(),
		DuplicateIntents: discard.NewCounter(),
		RejectedIntents:  discard.NewCounter(),
	}
}
