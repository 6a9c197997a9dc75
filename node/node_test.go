package node_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gossipnet/intentd/config"
	"github.com/gossipnet/intentd/internal/p2p"
	"github.com/gossipnet/intentd/internal/test/factory"
	"github.com/gossipnet/intentd/libs/log"
	"github.com/gossipnet/intentd/libs/service"
	"github.com/gossipnet/intentd/node"
	"github.com/gossipnet/intentd/types"
)

type recordingSink struct {
	mtx sync.Mutex
	txs []*types.Tx
}

func (s *recordingSink) Submit(_ context.Context, tx *types.Tx) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.txs = append(s.txs, tx)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) submitted() []*types.Tx {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]*types.Tx(nil), s.txs...)
}

func newTestNode(t *testing.T, network *p2p.MemoryNetwork, name string, matching bool) (*node.Node, *recordingSink) {
	t.Helper()

	cfg, err := config.ResetTestRoot(t.TempDir(), name)
	require.NoError(t, err)
	cfg.Moniker = name
	cfg.Gossip.Matchmaker.Enabled = matching

	sink := &recordingSink{}
	n, err := node.New(cfg, log.TestingLogger().With("node", name),
		node.WithTransport(network.CreateTransport(name)),
		node.WithSink(sink),
	)
	require.NoError(t, err)
	return n, sink
}

func TestNodeMatchesAcrossTheNetwork(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	network := p2p.NewMemoryNetwork(log.TestingLogger(), 16)
	relay, _ := newTestNode(t, network, "relay", false)
	matcher, sink := newTestNode(t, network, "matcher", true)

	require.NoError(t, relay.Start(ctx))
	require.NoError(t, matcher.Start(ctx))
	assert.Nil(t, relay.GossipIntent().Mempool())

	alice := factory.MakeIntent(factory.Holder("alice"), factory.Asset("XAN", 3), factory.Asset("BTC", 1))
	bob := factory.MakeIntent(factory.Holder("bob"), factory.Asset("BTC", 1), factory.Asset("XAN", 3))

	// alice is gossiped by the relay, bob is submitted locally
	require.NoError(t, relay.BroadcastIntent(ctx, &types.IntentBroadcasterMessage{Intent: alice, TTL: 3}))
	require.Eventually(t, func() bool {
		return matcher.GossipIntent().Mempool().Has(alice.Fingerprint())
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, matcher.BroadcastIntent(ctx, &types.IntentBroadcasterMessage{Intent: bob, TTL: 3}))

	require.Eventually(t, func() bool {
		return len(sink.submitted()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	tx := sink.submitted()[0]
	assert.ElementsMatch(t, types.MatchSet{alice, bob}.Fingerprints(), tx.Fingerprints())

	require.NoError(t, matcher.Stop())
	require.NoError(t, relay.Stop())
}

func TestNodeInvalidConfig(t *testing.T) {
	cfg := config.TestConfig()
	cfg.P2P.Transport = "carrier-pigeon"
	_, err := node.New(cfg, log.TestingLogger())
	assert.Error(t, err)

	cfg = config.TestConfig()
	cfg.Gossip.Matchmaker.RuleSource = "builtin:auction"
	_, err = node.New(cfg, log.TestingLogger())
	assert.Error(t, err)
}

func TestNodeStandalone(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	cfg, err := config.ResetTestRoot(t.TempDir(), "standalone")
	require.NoError(t, err)

	n, err := node.New(cfg, log.TestingLogger())
	require.NoError(t, err)
	require.NoError(t, n.Start(context.Background()))
	assert.True(t, n.GossipIntent().MatchingEnabled())
	require.NoError(t, n.Stop())
}

func TestNodeStartFailureStopsStartedComponents(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	network := p2p.NewMemoryNetwork(log.TestingLogger(), 16)
	n, _ := newTestNode(t, network, "matcher", true)

	// the ingestion core refuses a second start
	gossip := n.GossipIntent()
	require.NoError(t, gossip.Start(ctx))

	err := n.Start(ctx)
	require.ErrorIs(t, err, service.ErrAlreadyStarted)
	assert.False(t, n.IsRunning())
	assert.False(t, n.Transport().IsRunning())
	assert.True(t, gossip.IsRunning())

	require.NoError(t, gossip.Stop())
}
