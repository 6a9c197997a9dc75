package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gossipnet/intentd/config"
	"github.com/gossipnet/intentd/internal/intent"
	"github.com/gossipnet/intentd/internal/intent/matchmaker"
	"github.com/gossipnet/intentd/internal/intent/mempool"
	"github.com/gossipnet/intentd/internal/p2p"
	"github.com/gossipnet/intentd/internal/txsink"
	"github.com/gossipnet/intentd/libs/log"
	"github.com/gossipnet/intentd/libs/service"
	"github.com/gossipnet/intentd/types"
)

const prometheusShutdownTimeout = 5 * time.Second

// Node is an intent gossip node: it receives intents from the network,
// matches them if matching is enabled and submits the resulting
// transactions to a sink.
type Node struct {
	service.BaseService

	config *config.Config
	logger log.Logger

	transport p2p.Transport
	gossip    *intent.GossipIntent
	reactor   *intent.Reactor
	txs       <-chan *types.Tx
	sink      txsink.Sink

	metrics       *nodeMetrics
	prometheusSrv *http.Server
	pumpCancel    context.CancelFunc
	pumpDone      chan struct{}
}

// Option sets an optional parameter on the Node.
type Option func(*Node)

// WithTransport replaces the transport selected by the configuration.
func WithTransport(t p2p.Transport) Option {
	return func(n *Node) { n.transport = t }
}

// WithSink replaces the tx sink selected by the configuration.
func WithSink(sink txsink.Sink) Option {
	return func(n *Node) { n.sink = sink }
}

// New returns a node for cfg.
func New(cfg *config.Config, logger log.Logger, options ...Option) (*Node, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	n := &Node{
		config:   cfg,
		logger:   logger,
		metrics:  defaultMetricsProvider(cfg.Instrumentation)(cfg.Moniker),
		pumpDone: make(chan struct{}),
	}
	for _, opt := range options {
		opt(n)
	}

	if n.transport == nil {
		t, err := createTransport(logger, cfg, n.metrics.p2p)
		if err != nil {
			return nil, err
		}
		n.transport = t
	}

	gossip, txs, err := intent.NewGossipIntent(logger.With("module", "intent"), cfg.Gossip,
		intent.WithMetrics(n.metrics.intent),
		intent.WithMatchmakerOptions(
			matchmaker.WithMetrics(n.metrics.matchmaker),
			matchmaker.WithMempoolOptions(mempool.WithMetrics(n.metrics.mempool)),
		),
	)
	if err != nil {
		return nil, err
	}
	n.gossip = gossip
	n.txs = txs
	n.reactor = intent.NewReactor(logger.With("module", "reactor"), gossip, n.transport, cfg.Gossip.Workers)

	if n.sink == nil && txs != nil {
		sink, err := txsink.New(logger.With("module", "txsink"), cfg.TxSink)
		if err != nil {
			return nil, err
		}
		n.sink = sink
	}

	n.BaseService = *service.NewBaseService(logger, "Node", n)
	return n, nil
}

// OnStart starts the metrics server, the transport, the ingestion core,
// the reactor and the tx pump.
func (n *Node) OnStart(ctx context.Context) error {
	if n.config.Instrumentation.Prometheus && n.config.Instrumentation.PrometheusListenAddr != "" {
		n.prometheusSrv = n.startPrometheusServer(n.config.Instrumentation.PrometheusListenAddr)
	}

	if err := n.transport.Start(ctx); err != nil {
		n.abortStart()
		return fmt.Errorf("starting transport: %w", err)
	}
	if err := n.gossip.Start(ctx); err != nil {
		n.abortStart(n.transport)
		return fmt.Errorf("starting intent ingestion: %w", err)
	}
	if err := n.reactor.Start(ctx); err != nil {
		n.abortStart(n.gossip, n.transport)
		return fmt.Errorf("starting reactor: %w", err)
	}

	if n.txs == nil {
		close(n.pumpDone)
		return nil
	}

	// the pump outlives ctx so that transactions emitted during shutdown
	// still reach the sink
	pumpCtx, cancel := context.WithCancel(context.Background())
	n.pumpCancel = cancel
	go func() {
		defer close(n.pumpDone)
		txsink.Pump(pumpCtx, n.logger.With("module", "txsink"), n.txs, n.sink, n.metrics.txsink)
	}()
	return nil
}

// abortStart stops the components a failed OnStart already started.
func (n *Node) abortStart(started ...service.Service) {
	for _, s := range started {
		if err := s.Stop(); err != nil && !errors.Is(err, service.ErrAlreadyStopped) {
			n.logger.Error("failed to stop service", "service", s.String(), "err", err)
		}
	}
	n.stopPrometheusServer()
}

func (n *Node) stopPrometheusServer() {
	if n.prometheusSrv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), prometheusShutdownTimeout)
	defer cancel()
	if err := n.prometheusSrv.Shutdown(ctx); err != nil {
		// Error from closing listeners, or context timeout:
		n.logger.Error("Prometheus HTTP server Shutdown", "err", err)
	}
	n.prometheusSrv = nil
}

// OnStop stops every component in reverse order.
func (n *Node) OnStop() {
	n.logger.Info("stopping node")

	for _, s := range []service.Service{n.reactor, n.gossip} {
		if err := s.Stop(); err != nil && !errors.Is(err, service.ErrAlreadyStopped) {
			n.logger.Error("failed to stop service", "service", s.String(), "err", err)
		}
	}

	// the tx channel is closed once the matchmaker is gone
	<-n.pumpDone
	if n.pumpCancel != nil {
		n.pumpCancel()
	}

	if err := n.transport.Stop(); err != nil && !errors.Is(err, service.ErrAlreadyStopped) {
		n.logger.Error("failed to stop transport", "err", err)
	}
	if n.sink != nil {
		if err := n.sink.Close(); err != nil {
			n.logger.Error("failed to close tx sink", "err", err)
		}
	}

	n.stopPrometheusServer()
}

// BroadcastIntent applies a local intent and publishes it to the network.
func (n *Node) BroadcastIntent(ctx context.Context, msg *types.IntentBroadcasterMessage) error {
	return n.reactor.BroadcastIntent(ctx, msg)
}

// GossipIntent returns the ingestion core.
func (n *Node) GossipIntent() *intent.GossipIntent { return n.gossip }

// Transport returns the gossip transport.
func (n *Node) Transport() p2p.Transport { return n.transport }

// Config returns the node's configuration.
func (n *Node) Config() *config.Config { return n.config }

// startPrometheusServer starts a Prometheus HTTP server, listening for metrics
// collectors on addr.
func (n *Node) startPrometheusServer(addr string) *http.Server {
	srv := &http.Server{
		Addr: addr,
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{MaxRequestsInFlight: n.config.Instrumentation.MaxOpenConnections},
			),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			// Error starting or closing listener:
			n.logger.Error("Prometheus HTTP server ListenAndServe", "err", err)
		}
	}()
	return srv
}
