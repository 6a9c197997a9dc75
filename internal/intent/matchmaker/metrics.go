package matchmaker

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "matchmaker"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of match attempts, labelled by outcome.
	Attempts metrics.Counter
	// Number of intents included in emitted transactions.
	MatchedIntents metrics.Counter
	// Number of intents per emitted transaction.
	CycleLength metrics.Histogram
	// Candidate evaluations per attempt.
	SearchSteps metrics.Histogram
	// Number of rule evaluation faults.
	RuleFaults metrics.Counter
	// Time an emission spent blocked on the transaction channel.
	EmitBlockedSeconds metrics.Histogram
	// Number of matched intents remembered until they expire.
	ConsumedIntents metrics.Gauge
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
		Attempts: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "attempts",
			Help:      "Number of match attempts by outcome.",
		}, append(labels, "outcome")).With(labelsAndValues...),
		MatchedIntents: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "matched_intents",
			Help:      "Number of intents included in emitted transactions.",
		}, labels).With(labelsAndValues...),
		CycleLength: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "cycle_length",
			Help:      "Number of intents per emitted transaction.",
			Buckets:   stdprometheus.LinearBuckets(2, 1, 7),
		}, labels).With(labelsAndValues...),
		SearchSteps: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "search_steps",
			Help:      "Candidate evaluations per match attempt.",
			Buckets:   stdprometheus.ExponentialBuckets(1, 4, 9),
		}, labels).With(labelsAndValues...),
		RuleFaults: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "rule_faults",
			Help:      "Number of matching rule evaluation faults.",
		}, labels).With(labelsAndValues...),
		EmitBlockedSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "emit_blocked_seconds",
			Help:      "Time an emission waited for the transaction consumer.",
			Buckets:   stdprometheus.ExponentialBuckets(0.001, 4, 8),
		}, labels).With(labelsAndValues...),
		ConsumedIntents: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "consumed_intents",
			Help:      "Number of matched intents remembered until they expire.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Attempts:           discard.NewCounter(),
		MatchedIntents:     discard.NewCounter(),
		CycleLength:        discard.NewHistogram(),
		SearchSteps:        discard.NewHistogram(),
		RuleFaults:         discard.NewCounter(),
		EmitBlockedSeconds: discard.NewHistogram(),
		ConsumedIntents:    discard.NewGauge(),
	}
}
