package p2p

import (
	"context"
	"fmt"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/gossipnet/intentd/config"
	"github.com/gossipnet/intentd/libs/log"
	"github.com/gossipnet/intentd/libs/service"
)

// GossipSubTransport gossips intents on a libp2p gossipsub topic.
type GossipSubTransport struct {
	service.BaseService

	logger  log.Logger
	metrics *Metrics
	cfg     *config.P2PConfig

	host  host.Host
	ps    *pubsub.PubSub
	topic *pubsub.Topic
	sub   *pubsub.Subscription

	recv chan Envelope
	done chan struct{}
}

var _ Transport = (*GossipSubTransport)(nil)

// NewGossipSubTransport returns a transport for cfg. The libp2p host is
// created on Start.
func NewGossipSubTransport(logger log.Logger, cfg *config.P2PConfig, metrics *Metrics) *GossipSubTransport {
	if metrics == nil {
		metrics = NopMetrics()
	}
	t := &GossipSubTransport{
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
		recv:    make(chan Envelope, cfg.RecvBufferSize),
		done:    make(chan struct{}),
	}
	t.BaseService = *service.NewBaseService(logger, "GossipSubTransport", t)
	return t
}

func (t *GossipSubTransport) OnStart(ctx context.Context) error {
	h, err := NewHost(t.cfg)
	if err != nil {
		return fmt.Errorf("creating libp2p host: %w", err)
	}
	t.host = h

	if t.ps, err = NewPubSub(ctx, t.cfg, h); err != nil {
		_ = h.Close()
		return fmt.Errorf("creating gossipsub: %w", err)
	}
	if t.topic, err = t.ps.Join(t.cfg.Topic); err != nil {
		_ = h.Close()
		return fmt.Errorf("joining topic %s: %w", t.cfg.Topic, err)
	}
	if t.sub, err = t.topic.Subscribe(); err != nil {
		_ = t.topic.Close()
		_ = h.Close()
		return fmt.Errorf("subscribing to topic %s: %w", t.cfg.Topic, err)
	}

	for _, addr := range t.Addrs() {
		t.logger.Info("listening", "addr", addr.String())
	}

	// best effort; peers may come up later and dial us
	for _, addr := range t.cfg.BootstrapPeers {
		if err := connectPeer(ctx, h, addr); err != nil {
			t.logger.Error("failed to connect to bootstrap peer", "addr", addr, "err", err)
		}
	}

	go t.receiveLoop(ctx)
	return nil
}

func (t *GossipSubTransport) OnStop() {
	t.sub.Cancel()
	<-t.done

	if err := t.topic.Close(); err != nil {
		t.logger.Error("failed to close topic", "err", err)
	}
	if err := t.host.Close(); err != nil {
		t.logger.Error("failed to close libp2p host", "err", err)
	}
}

// Addrs returns the full multiaddrs, including /p2p/<id>, other peers can
// use to reach this host. It is empty before Start.
func (t *GossipSubTransport) Addrs() []ma.Multiaddr {
	if t.host == nil {
		return nil
	}
	addrs, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{ID: t.host.ID(), Addrs: t.host.Addrs()})
	if err != nil {
		return nil
	}
	return addrs
}

func (t *GossipSubTransport) Receive() <-chan Envelope { return t.recv }

func (t *GossipSubTransport) Broadcast(ctx context.Context, msg []byte) error {
	if !t.IsRunning() {
		return ErrNotRunning
	}
	if len(msg) > t.cfg.MaxMessageBytes {
		return fmt.Errorf("message of %d bytes exceeds max-message-bytes %d", len(msg), t.cfg.MaxMessageBytes)
	}

	if err := t.topic.Publish(ctx, msg); err != nil {
		return err
	}
	t.metrics.MessagesSent.Add(1)
	t.metrics.BytesSent.Add(float64(len(msg)))
	return nil
}

func (t *GossipSubTransport) receiveLoop(ctx context.Context) {
	defer close(t.done)

	self := t.host.ID()
	for {
		msg, err := t.sub.Next(ctx)
		if err != nil {
			// canceled subscription or context
			return
		}
		if msg.ReceivedFrom == self {
			continue
		}

		t.metrics.MessagesReceived.Add(1)
		t.metrics.BytesReceived.Add(float64(len(msg.Data)))
		t.metrics.Peers.Set(float64(len(t.topic.ListPeers())))

		select {
		case t.recv <- Envelope{From: msg.ReceivedFrom.String(), Message: msg.Data}:
		case <-t.Quit():
			t.metrics.DroppedMessages.With("reason", "stopped").Add(1)
			return
		case <-ctx.Done():
			return
		}
	}
}
