package factory

import (
	"fmt"
	"time"

	"github.com/gossipnet/intentd/crypto/ed25519"
	"github.com/gossipnet/intentd/types"
)

// Holder derives a deterministic key from name.
func Holder(name string) ed25519.PrivKey {
	return ed25519.GenPrivKeyFromSecret([]byte(name))
}

// MakeIntent returns an intent signed by priv giving have for want.
func MakeIntent(priv ed25519.PrivKey, have, want types.Asset) *types.Intent {
	return MakeIntentWithNonce(priv, have, want, 0)
}

func MakeIntentWithNonce(priv ed25519.PrivKey, have, want types.Asset, nonce uint64) *types.Intent {
	in := &types.Intent{Have: have, Want: want, Nonce: nonce}
	if err := in.Sign(priv); err != nil {
		panic(err)
	}
	return in
}

// MakeExpiringIntent returns a signed intent expiring at expiry.
func MakeExpiringIntent(priv ed25519.PrivKey, have, want types.Asset, expiry time.Time) *types.Intent {
	in := &types.Intent{Have: have, Want: want, Expiry: expiry}
	if err := in.Sign(priv); err != nil {
		panic(err)
	}
	return in
}

// Asset is shorthand for types.Asset{Denom: denom, Amount: amount}.
func Asset(denom string, amount int64) types.Asset {
	return types.Asset{Denom: denom, Amount: amount}
}

// MakeCycle returns n intents by distinct holders forming a closed cycle
// over the denominations D0..D(n-1): member i gives D(i) and wants D(i+1).
func MakeCycle(prefix string, n int, amount int64) []*types.Intent {
	ins := make([]*types.Intent, n)
	for i := 0; i < n; i++ {
		have := Asset(fmt.Sprintf("D%d", i), amount)
		want := Asset(fmt.Sprintf("D%d", (i+1)%n), amount)
		ins[i] = MakeIntent(Holder(fmt.Sprintf("%s-%d", prefix, i)), have, want)
	}
	return ins
}
