package intent

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "intent"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of raw messages that failed to decode.
	DecodeErrors metrics.Counter
	// Number of intents rejected by the admission filter, labelled by
	// reason.
	Rejected metrics.Counter
	// Number of intents admitted and handed to the matchmaker.
	Admitted metrics.Counter
	// Number of intents received while in relay mode.
	Relayed metrics.Counter
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
		DecodeErrors: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "decode_errors",
			Help:      "Number of raw gossip messages that failed to decode.",
		}, labels).With(labelsAndValues...),
		Rejected: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "rejected_intents",
			Help:      "Number of intents rejected by the admission filter.",
		}, append(labels, "reason")).With(labelsAndValues...),
		Admitted: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "admitted_intents",
			Help:      "Number of intents handed to the matchmaker.",
		}, labels).With(labelsAndValues...),
		Relayed: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "relayed_intents",
			Help:      "Number of intents received with matching disabled.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		DecodeErrors: discard.NewCounter(),
		Rejected:     discard.NewCounter(),
		Admitted:     discard.NewCounter(),
		Relayed:      discard.NewCounter(),
	}
}
