package node

import (
	"fmt"

	"github.com/gossipnet/intentd/config"
	"github.com/gossipnet/intentd/internal/intent"
	"github.com/gossipnet/intentd/internal/intent/matchmaker"
	"github.com/gossipnet/intentd/internal/intent/mempool"
	"github.com/gossipnet/intentd/internal/p2p"
	"github.com/gossipnet/intentd/internal/txsink"
	"github.com/gossipnet/intentd/libs/log"
)

type nodeMetrics struct {
	intent     *intent.Metrics
	matchmaker *matchmaker.Metrics
	mempool    *mempool.Metrics
	p2p        *p2p.Metrics
	txsink     *txsink.Metrics
}

// metricsProvider returns the metrics of every component of a node.
type metricsProvider func(moniker string) *nodeMetrics

// defaultMetricsProvider returns Prometheus metrics if Prometheus is enabled,
// otherwise it returns no-op Metrics.
func defaultMetricsProvider(cfg *config.InstrumentationConfig) metricsProvider {
	return func(moniker string) *nodeMetrics {
		if cfg.Prometheus {
			return &nodeMetrics{
				intent:     intent.PrometheusMetrics(cfg.Namespace, "moniker", moniker),
				matchmaker: matchmaker.PrometheusMetrics(cfg.Namespace, "moniker", moniker),
				mempool:    mempool.PrometheusMetrics(cfg.Namespace, "moniker", moniker),
				p2p:        p2p.PrometheusMetrics(cfg.Namespace, "moniker", moniker),
				txsink:     txsink.PrometheusMetrics(cfg.Namespace, "moniker", moniker),
			}
		}
		return &nodeMetrics{
			intent:     intent.NopMetrics(),
			matchmaker: matchmaker.NopMetrics(),
			mempool:    mempool.NopMetrics(),
			p2p:        p2p.NopMetrics(),
			txsink:     txsink.NopMetrics(),
		}
	}
}

func createTransport(logger log.Logger, cfg *config.Config, metrics *p2p.Metrics) (p2p.Transport, error) {
	logger = logger.With("module", "p2p")

	switch cfg.P2P.Transport {
	case config.TransportMemory:
		// a network of one; useful for local experiments with sign-intent
		t := p2p.NewMemoryNetwork(logger, cfg.P2P.RecvBufferSize).CreateTransport(cfg.Moniker)
		t.SetMetrics(metrics)
		return t, nil
	case config.TransportGossipSub:
		return p2p.NewGossipSubTransport(logger, cfg.P2P, metrics), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.P2P.Transport)
	}
}
