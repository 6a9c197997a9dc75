package filter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gossipnet/intentd/internal/intent/filter"
	"github.com/gossipnet/intentd/internal/test/factory"
	"github.com/gossipnet/intentd/types"
)

func TestFilterCheck(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	alice := factory.Holder("alice")

	registry := []filter.AssetRule{
		{Denom: "XAN", MaxAmount: 100},
		{Denom: "BTC"},
	}

	resign := func(in *types.Intent) *types.Intent {
		require.NoError(t, in.Sign(alice))
		return in
	}

	testCases := []struct {
		name   string
		assets []filter.AssetRule
		intent *types.Intent
		want   filter.Reason
	}{
		{
			name:   "accepted",
			assets: registry,
			intent: factory.MakeIntent(alice, factory.Asset("XAN", 5), factory.Asset("BTC", 1)),
			want:   filter.Accepted,
		},
		{
			name:   "no registry accepts any denom",
			intent: factory.MakeIntent(alice, factory.Asset("FOO", 5), factory.Asset("BAR", 1)),
			want:   filter.Accepted,
		},
		{
			name:   "unsigned",
			intent: &types.Intent{Holder: alice.PubKey().Bytes(), Have: factory.Asset("X", 1), Want: factory.Asset("Y", 1)},
			want:   filter.RejectMalformed,
		},
		{
			name:   "expired",
			intent: factory.MakeExpiringIntent(alice, factory.Asset("X", 1), factory.Asset("Y", 1), now),
			want:   filter.RejectExpired,
		},
		{
			name:   "zero have",
			intent: factory.MakeIntent(alice, factory.Asset("X", 0), factory.Asset("Y", 1)),
			want:   filter.RejectNonPositiveAmount,
		},
		{
			name:   "negative want",
			intent: factory.MakeIntent(alice, factory.Asset("X", 1), factory.Asset("Y", -1)),
			want:   filter.RejectNonPositiveAmount,
		},
		{
			name:   "self swap",
			intent: factory.MakeIntent(alice, factory.Asset("X", 1), factory.Asset("X", 2)),
			want:   filter.RejectSelfSwap,
		},
		{
			name:   "unknown asset",
			assets: registry,
			intent: factory.MakeIntent(alice, factory.Asset("XAN", 1), factory.Asset("ETH", 1)),
			want:   filter.RejectUnknownAsset,
		},
		{
			name:   "amount too large",
			assets: registry,
			intent: factory.MakeIntent(alice, factory.Asset("XAN", 101), factory.Asset("BTC", 1)),
			want:   filter.RejectAmountTooLarge,
		},
		{
			name: "tampered",
			intent: func() *types.Intent {
				in := factory.MakeIntent(alice, factory.Asset("X", 1), factory.Asset("Y", 1))
				in.Want.Amount = 1000
				return in
			}(),
			want: filter.RejectBadSignature,
		},
		{
			name: "signed by someone else",
			intent: func() *types.Intent {
				in := resign(&types.Intent{Have: factory.Asset("X", 1), Want: factory.Asset("Y", 1)})
				in.Holder = factory.Holder("mallory").PubKey().Bytes()
				return in
			}(),
			want: filter.RejectBadSignature,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := filter.New(tc.assets, filter.WithClock(clock))
			v := f.Check(tc.intent)
			require.Equal(t, tc.want, v.Reason, v.String())
			require.Equal(t, tc.want == filter.Accepted, v.Accepted())
		})
	}
}

func TestFilterMaxLifetime(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	alice := factory.Holder("alice")
	f := filter.New(nil, filter.WithClock(func() time.Time { return now }), filter.WithMaxLifetime(time.Hour))

	testCases := []struct {
		name   string
		intent *types.Intent
		want   filter.Reason
	}{
		{"never expires", factory.MakeIntent(alice, factory.Asset("X", 1), factory.Asset("Y", 1)), filter.RejectNoExpiry},
		{"within lifetime", factory.MakeExpiringIntent(alice, factory.Asset("X", 1), factory.Asset("Y", 1), now.Add(time.Minute)), filter.Accepted},
		{"at lifetime", factory.MakeExpiringIntent(alice, factory.Asset("X", 1), factory.Asset("Y", 1), now.Add(time.Hour)), filter.Accepted},
		{"past lifetime", factory.MakeExpiringIntent(alice, factory.Asset("X", 1), factory.Asset("Y", 1), now.Add(time.Hour+1)), filter.RejectLifetimeTooLong},
		{"expired", factory.MakeExpiringIntent(alice, factory.Asset("X", 1), factory.Asset("Y", 1), now), filter.RejectExpired},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := f.Check(tc.intent)
			require.Equal(t, tc.want, v.Reason, v.String())
		})
	}
}

func TestFilterSignatureCache(t *testing.T) {
	alice := factory.Holder("alice")
	f := filter.New(nil, filter.WithSignatureCache(1))

	in := factory.MakeIntent(alice, factory.Asset("X", 1), factory.Asset("Y", 1))
	require.True(t, f.Check(in).Accepted())
	require.Equal(t, 1, f.VerifiedLen())
	require.True(t, f.Check(in).Accepted())
	require.Equal(t, 1, f.VerifiedLen())

	// any change to the bytes misses the cache
	tampered := *in
	tampered.Want.Amount = 2
	require.Equal(t, filter.RejectBadSignature, f.Check(&tampered).Reason)
	require.Equal(t, 1, f.VerifiedLen())

	other := factory.MakeIntentWithNonce(alice, factory.Asset("X", 1), factory.Asset("Y", 1), 1)
	require.True(t, f.Check(other).Accepted())
	require.Equal(t, 1, f.VerifiedLen())

	require.Zero(t, filter.New(nil).VerifiedLen())
}

func TestReasonString(t *testing.T) {
	require.Equal(t, "bad_signature", filter.RejectBadSignature.String())
	require.Equal(t, "no_expiry", filter.RejectNoExpiry.String())
	require.Equal(t, "reason(200)", filter.Reason(200).String())
	require.Equal(t, "accepted", filter.Verdict{}.String())
}
