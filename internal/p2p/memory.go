package p2p

import (
	"context"
	"fmt"
	"sync"

	"github.com/gossipnet/intentd/libs/log"
	"github.com/gossipnet/intentd/libs/service"
)

// MemoryNetwork is an in-process gossip network. Every message broadcast by
// one of its transports is delivered to all other running transports.
type MemoryNetwork struct {
	logger     log.Logger
	bufferSize int

	mtx        sync.RWMutex
	transports map[string]*MemoryTransport
}

// NewMemoryNetwork creates a new in-memory network. bufferSize is the
// capacity of each transport's inbound channel.
func NewMemoryNetwork(logger log.Logger, bufferSize int) *MemoryNetwork {
	return &MemoryNetwork{
		logger:     logger,
		bufferSize: bufferSize,
		transports: map[string]*MemoryTransport{},
	}
}

// CreateTransport creates a transport identified by id. It panics if id is
// already in use.
func (n *MemoryNetwork) CreateTransport(id string) *MemoryTransport {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	if _, ok := n.transports[id]; ok {
		panic(fmt.Sprintf("memory transport %q already exists", id))
	}

	t := &MemoryTransport{
		logger:  n.logger.With("local", id),
		metrics: NopMetrics(),
		network: n,
		id:      id,
		recv:    make(chan Envelope, n.bufferSize),
	}
	t.BaseService = *service.NewBaseService(t.logger, "MemoryTransport", t)
	n.transports[id] = t
	return t
}

// Size returns the number of transports in the network.
func (n *MemoryNetwork) Size() int {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return len(n.transports)
}

func (n *MemoryNetwork) removeTransport(id string) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	delete(n.transports, id)
}

func (n *MemoryNetwork) peers(self string) []*MemoryTransport {
	n.mtx.RLock()
	defer n.mtx.RUnlock()

	peers := make([]*MemoryTransport, 0, len(n.transports))
	for id, t := range n.transports {
		if id != self {
			peers = append(peers, t)
		}
	}
	return peers
}

// MemoryTransport is a Transport on a MemoryNetwork.
type MemoryTransport struct {
	service.BaseService

	logger  log.Logger
	metrics *Metrics
	network *MemoryNetwork
	id      string
	recv    chan Envelope
}

var _ Transport = (*MemoryTransport)(nil)

// SetMetrics sets the metrics. It must be called before Start.
func (t *MemoryTransport) SetMetrics(metrics *Metrics) { t.metrics = metrics }

// ID returns the transport's identifier on the network.
func (t *MemoryTransport) ID() string { return t.id }

func (t *MemoryTransport) OnStart(ctx context.Context) error {
	t.metrics.Peers.Set(float64(t.network.Size() - 1))
	return nil
}

func (t *MemoryTransport) OnStop() {
	t.network.removeTransport(t.id)
}

func (t *MemoryTransport) Receive() <-chan Envelope { return t.recv }

// Broadcast delivers a copy of msg to every other running transport. It
// blocks while a peer's inbound buffer is full.
func (t *MemoryTransport) Broadcast(ctx context.Context, msg []byte) error {
	if !t.IsRunning() {
		return ErrNotRunning
	}

	for _, peer := range t.network.peers(t.id) {
		if !peer.IsRunning() {
			continue
		}

		env := Envelope{From: t.id, Message: append([]byte(nil), msg...)}
		select {
		case peer.recv <- env:
			peer.metrics.MessagesReceived.Add(1)
			peer.metrics.BytesReceived.Add(float64(len(msg)))
		case <-peer.Quit():
			peer.metrics.DroppedMessages.With("reason", "stopped").Add(1)
		case <-t.Quit():
			return ErrNotRunning
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	t.metrics.MessagesSent.Add(1)
	t.metrics.BytesSent.Add(float64(len(msg)))
	return nil
}
