package intent_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/gossipnet/intentd/config"
	"github.com/gossipnet/intentd/internal/intent"
	"github.com/gossipnet/intentd/internal/intent/matchmaker"
	"github.com/gossipnet/intentd/internal/test/factory"
	"github.com/gossipnet/intentd/libs/log"
	"github.com/gossipnet/intentd/types"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testTime }

func newGossipIntent(t *testing.T, cfg *config.GossipConfig, options ...intent.Option) (*intent.GossipIntent, <-chan *types.Tx) {
	t.Helper()
	t.Cleanup(leaktest.Check(t))

	if cfg == nil {
		cfg = config.TestGossipConfig()
	}
	options = append([]intent.Option{intent.WithClock(testClock)}, options...)

	gi, txs, err := intent.NewGossipIntent(log.TestingLogger(), cfg, options...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, gi.Start(ctx))
	t.Cleanup(func() {
		cancel()
		gi.Wait()
		if txs != nil {
			// closed once the matchmaker worker exits
			for range txs {
			}
		}
	})
	return gi, txs
}

func makeIntent(name, have, want string) *types.Intent {
	return factory.MakeIntent(factory.Holder(name), factory.Asset(have, 5), factory.Asset(want, 5))
}

func TestGossipIntentRelayMode(t *testing.T) {
	for name, cfg := range map[string]*config.GossipConfig{
		"no matchmaker": {MaxMsgBytes: 4096, Workers: 1},
		"disabled":      {MaxMsgBytes: 4096, Workers: 1, Matchmaker: &config.MatchmakerConfig{}},
	} {
		cfg := cfg
		t.Run(name, func(t *testing.T) {
			gi, txs := newGossipIntent(t, cfg)
			assert.Nil(t, txs)
			assert.Nil(t, gi.Mempool())
			assert.False(t, gi.MatchingEnabled())

			msg, err := gi.ParseRawMsg((&types.IntentBroadcasterMessage{Intent: makeIntent("alice", "A", "B")}).Bytes())
			require.NoError(t, err)

			attempted, err := gi.ApplyIntent(context.Background(), msg.Intent)
			require.NoError(t, err)
			assert.False(t, attempted)
		})
	}
}

func TestNewGossipIntentInitErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.toml"), []byte("policy = \"auction\"\n"), 0600))

	testCases := map[string]func(cfg *config.MatchmakerConfig){
		"unknown builtin": func(cfg *config.MatchmakerConfig) { cfg.RuleSource = "builtin:auction" },
		"missing file":    func(cfg *config.MatchmakerConfig) { cfg.RuleSource = "missing.toml" },
		"invalid rules":   func(cfg *config.MatchmakerConfig) { cfg.RuleSource = "bad.toml" },
		"zero capacity":   func(cfg *config.MatchmakerConfig) { cfg.MempoolCapacity = 0 },
		"cycle of one":    func(cfg *config.MatchmakerConfig) { cfg.MaxCycleLength = 1 },
	}

	for name, mutate := range testCases {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			cfg := config.TestGossipConfig()
			cfg.SetRoot(dir)
			mutate(cfg.Matchmaker)

			_, txs, err := intent.NewGossipIntent(log.TestingLogger(), cfg)
			var initErr intent.ErrMatchmakerInit
			require.ErrorAs(t, err, &initErr)
			assert.Nil(t, txs)
		})
	}
}

func TestParseRawMsg(t *testing.T) {
	gi, _ := newGossipIntent(t, nil)
	alice := makeIntent("alice", "A", "B")

	msg := &types.IntentBroadcasterMessage{Intent: alice, TTL: 8, Hops: 2}
	got, err := gi.ParseRawMsg(msg.Bytes())
	require.NoError(t, err)
	assert.Equal(t, alice.Fingerprint(), got.Intent.Fingerprint())
	assert.EqualValues(t, 8, got.TTL)
	assert.EqualValues(t, 2, got.Hops)

	unsigned := &types.Intent{Holder: alice.Holder, Have: alice.Have, Want: alice.Want}
	testCases := map[string][]byte{
		"empty":       {},
		"garbage":     []byte("definitely not protobuf"),
		"truncated":   msg.Bytes()[:len(msg.Bytes())-3],
		"too large":   make([]byte, config.TestGossipConfig().MaxMsgBytes+1),
		"no intent":   {0x10, 0x01},
		"no sig":      (&types.IntentBroadcasterMessage{Intent: unsigned}).Bytes(),
		"wire type":   {0x0a, 0x02, 0x10, 0x01},
		"huge length": {0x0a, 0xff, 0xff, 0xff, 0xff, 0x0f},
	}
	for name, bz := range testCases {
		bz := bz
		t.Run(name, func(t *testing.T) {
			_, err := gi.ParseRawMsg(bz)
			var decodeErr intent.ErrDecode
			require.ErrorAs(t, err, &decodeErr)
		})
	}

	_, err = gi.ParseRawMsg(make([]byte, 4097))
	var tooLarge intent.ErrMsgTooLarge
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, 4097, tooLarge.Actual)
}

func TestParseRawMsgArbitraryBytes(t *testing.T) {
	gi, _ := newGossipIntent(t, nil)

	rapid.Check(t, func(t *rapid.T) {
		bz := rapid.SliceOfN(rapid.Byte(), 0, 512).Draw(t, "bz")
		msg, err := gi.ParseRawMsg(bz)
		if err != nil {
			var decodeErr intent.ErrDecode
			if !errors.As(err, &decodeErr) {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			return
		}
		if msg.Intent == nil {
			t.Fatal("decoded message without an intent")
		}
	})
}

func TestApplyIntentRejections(t *testing.T) {
	gi, txs := newGossipIntent(t, nil)
	alice := factory.Holder("alice")

	badSig := makeIntent("alice", "A", "B")
	badSig.Nonce++

	for name, in := range map[string]*types.Intent{
		"expired":   factory.MakeExpiringIntent(alice, factory.Asset("A", 5), factory.Asset("B", 5), testTime),
		"self swap": factory.MakeIntent(alice, factory.Asset("A", 5), factory.Asset("A", 5)),
		"zero":      factory.MakeIntent(alice, factory.Asset("A", 0), factory.Asset("B", 5)),
		"bad sig":   badSig,
	} {
		attempted, err := gi.ApplyIntent(context.Background(), in)
		require.NoError(t, err, name)
		assert.False(t, attempted, name)
	}
	assert.Zero(t, gi.Mempool().Size())

	select {
	case tx := <-txs:
		t.Fatalf("unexpected tx %v", tx)
	default:
	}
}

func TestApplyIntentMaxLifetime(t *testing.T) {
	cfg := config.TestGossipConfig()
	cfg.Matchmaker.MaxIntentLifetime = time.Hour
	gi, _ := newGossipIntent(t, cfg)
	alice := factory.Holder("alice")

	for name, in := range map[string]*types.Intent{
		"never expires": factory.MakeIntent(alice, factory.Asset("A", 5), factory.Asset("B", 5)),
		"too long":      factory.MakeExpiringIntent(alice, factory.Asset("A", 5), factory.Asset("B", 5), testTime.Add(2*time.Hour)),
	} {
		attempted, err := gi.ApplyIntent(context.Background(), in)
		require.NoError(t, err, name)
		assert.False(t, attempted, name)
	}

	ok := factory.MakeExpiringIntent(alice, factory.Asset("A", 5), factory.Asset("B", 5), testTime.Add(time.Minute))
	attempted, err := gi.ApplyIntent(context.Background(), ok)
	require.NoError(t, err)
	assert.True(t, attempted)
	assert.True(t, gi.Mempool().Has(ok.Fingerprint()))
}

func TestApplyIntentAssetRegistry(t *testing.T) {
	dir := t.TempDir()
	rules := "policy = \"barter\"\n[[assets]]\ndenom = \"XAN\"\nmax-amount = 10\n[[assets]]\ndenom = \"BTC\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.toml"), []byte(rules), 0600))

	cfg := config.TestGossipConfig()
	cfg.SetRoot(dir)
	cfg.Matchmaker.RuleSource = "rules.toml"
	gi, txs := newGossipIntent(t, cfg)

	alice, bob := factory.Holder("alice"), factory.Holder("bob")
	for _, in := range []*types.Intent{
		factory.MakeIntent(alice, factory.Asset("ETH", 5), factory.Asset("BTC", 5)),
		factory.MakeIntent(alice, factory.Asset("XAN", 11), factory.Asset("BTC", 5)),
	} {
		attempted, err := gi.ApplyIntent(context.Background(), in)
		require.NoError(t, err)
		assert.False(t, attempted)
	}

	for _, in := range []*types.Intent{
		factory.MakeIntent(alice, factory.Asset("XAN", 10), factory.Asset("BTC", 5)),
		factory.MakeIntent(bob, factory.Asset("BTC", 5), factory.Asset("XAN", 10)),
	} {
		attempted, err := gi.ApplyIntent(context.Background(), in)
		require.NoError(t, err)
		assert.True(t, attempted)
	}

	tx := <-txs
	assert.Len(t, tx.Intents, 2)
}

func TestApplyIntentMatches(t *testing.T) {
	gi, txs := newGossipIntent(t, nil)
	cycle := factory.MakeCycle("member", 3, 7)

	for _, in := range cycle {
		attempted, err := gi.ApplyIntent(context.Background(), in)
		require.NoError(t, err)
		assert.True(t, attempted)
	}

	select {
	case tx := <-txs:
		assert.ElementsMatch(t, types.MatchSet(cycle).Fingerprints(), tx.Fingerprints())
		assert.Equal(t, testTime, tx.Timestamp)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a tx")
	}
	assert.Zero(t, gi.Mempool().Size())

	// at-least-once delivery: all redeliveries are absorbed
	for _, in := range cycle {
		attempted, err := gi.ApplyIntent(context.Background(), in)
		require.NoError(t, err)
		assert.True(t, attempted)
	}
	assert.Zero(t, gi.Mempool().Size())
}

type faultyPolicy struct{}

func (faultyPolicy) Name() string        { return "faulty" }
func (faultyPolicy) MaxCycleLength() int { return 2 }
func (faultyPolicy) Links(_, _ *types.Intent) (bool, error) {
	panic("index out of range")
}

func TestApplyIntentRuleFault(t *testing.T) {
	gi, _ := newGossipIntent(t, nil,
		intent.WithMatchmakerOptions(matchmaker.WithPolicy(faultyPolicy{})))

	attempted, err := gi.ApplyIntent(context.Background(), makeIntent("bob", "B", "A"))
	require.NoError(t, err)
	assert.True(t, attempted)

	alice := makeIntent("alice", "A", "B")
	attempted, err = gi.ApplyIntent(context.Background(), alice)
	assert.True(t, attempted)
	var mmErr intent.ErrMatchmaker
	require.ErrorAs(t, err, &mmErr)
	var ruleErr matchmaker.RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "faulty", ruleErr.Policy)

	assert.True(t, gi.Mempool().Has(alice.Fingerprint()))
}

func TestApplyIntentStopped(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	gi, txs, err := intent.NewGossipIntent(log.TestingLogger(), config.TestGossipConfig())
	require.NoError(t, err)
	require.NoError(t, gi.Start(context.Background()))
	require.NoError(t, gi.Stop())

	for range txs {
	}

	attempted, err := gi.ApplyIntent(context.Background(), makeIntent("alice", "A", "B"))
	assert.False(t, attempted)
	assert.ErrorIs(t, err, matchmaker.ErrStopped)
}
