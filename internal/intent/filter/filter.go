// Package filter implements the admission gate every intent passes before
// it is considered for matching.
package filter

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gossipnet/intentd/types"
)

// Reason classifies the outcome of an admission check. The zero value
// accepts the intent.
type Reason uint8

const (
	Accepted Reason = iota
	RejectMalformed
	RejectExpired
	RejectNonPositiveAmount
	RejectSelfSwap
	RejectUnknownAsset
	RejectAmountTooLarge
	RejectBadSignature
	RejectNoExpiry
	RejectLifetimeTooLong
)

var reasonNames = map[Reason]string{
	Accepted:                "accepted",
	RejectMalformed:         "malformed",
	RejectExpired:           "expired",
	RejectNonPositiveAmount: "non_positive_amount",
	RejectSelfSwap:          "self_swap",
	RejectUnknownAsset:      "unknown_asset",
	RejectAmountTooLarge:    "amount_too_large",
	RejectBadSignature:      "bad_signature",
	RejectNoExpiry:          "no_expiry",
	RejectLifetimeTooLong:   "lifetime_too_long",
}

// String returns the metric label of the reason.
func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("reason(%d)", uint8(r))
}

// Verdict is the filter's decision on whether an intent may be matched.
type Verdict struct {
	Reason Reason
	// Detail is for debugging only.
	Detail string
}

func (v Verdict) Accepted() bool { return v.Reason == Accepted }

func (v Verdict) String() string {
	if v.Detail == "" {
		return v.Reason.String()
	}
	return v.Reason.String() + ": " + v.Detail
}

func reject(r Reason, format string, args ...interface{}) Verdict {
	return Verdict{Reason: r, Detail: fmt.Sprintf(format, args...)}
}

// AssetRule registers a known asset. A zero MaxAmount is unbounded.
type AssetRule struct {
	Denom     string
	MaxAmount int64
}

// Filter screens intents. Check is safe for concurrent use.
type Filter struct {
	assets      map[string]AssetRule
	now         func() time.Time
	maxLifetime time.Duration

	// fingerprints of intents whose signature verified
	verified *lru.Cache[types.Fingerprint, struct{}]
}

// Option sets an optional parameter on the Filter.
type Option func(*Filter)

// WithClock sets the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(f *Filter) { f.now = now }
}

// WithMaxLifetime requires every intent to expire within d of the check.
// Zero accepts intents that never expire.
func WithMaxLifetime(d time.Duration) Option {
	return func(f *Filter) { f.maxLifetime = d }
}

// WithSignatureCache remembers up to size verified intents, so that
// redeliveries skip signature verification. The fingerprint covers the
// signature, so a hit is only possible for identical bytes.
func WithSignatureCache(size int) Option {
	return func(f *Filter) {
		if size <= 0 {
			f.verified = nil
			return
		}
		cache, err := lru.New[types.Fingerprint, struct{}](size)
		if err != nil {
			panic(err)
		}
		f.verified = cache
	}
}

// New returns a Filter. When assets is empty any well formed denom is
// accepted.
func New(assets []AssetRule, options ...Option) *Filter {
	f := &Filter{
		assets: make(map[string]AssetRule, len(assets)),
		now:    time.Now,
	}
	for _, a := range assets {
		f.assets[a.Denom] = a
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// Check runs the cheap structural and policy checks first and verifies the
// signature last.
func (f *Filter) Check(in *types.Intent) Verdict {
	if err := in.ValidateBasic(); err != nil {
		return reject(RejectMalformed, "%v", err)
	}
	now := f.now()
	if in.IsExpired(now) {
		return reject(RejectExpired, "expired at %v", in.Expiry)
	}
	if f.maxLifetime > 0 {
		if in.Expiry.IsZero() {
			return reject(RejectNoExpiry, "intents must expire within %v", f.maxLifetime)
		}
		if in.Expiry.After(now.Add(f.maxLifetime)) {
			return reject(RejectLifetimeTooLong, "expiry %v is more than %v away", in.Expiry, f.maxLifetime)
		}
	}
	if in.Have.Amount <= 0 || in.Want.Amount <= 0 {
		return reject(RejectNonPositiveAmount, "have %d, want %d", in.Have.Amount, in.Want.Amount)
	}
	if in.Have.Denom == in.Want.Denom {
		return reject(RejectSelfSwap, "have and want are both %s", in.Have.Denom)
	}
	if v := f.checkAsset(in.Have); !v.Accepted() {
		return v
	}
	if v := f.checkAsset(in.Want); !v.Accepted() {
		return v
	}
	return f.checkSignature(in)
}

func (f *Filter) checkSignature(in *types.Intent) Verdict {
	if f.verified == nil {
		if !in.VerifySignature() {
			return reject(RejectBadSignature, "holder %X", []byte(in.Holder))
		}
		return Verdict{}
	}

	fp := in.Fingerprint()
	if f.verified.Contains(fp) {
		return Verdict{}
	}
	if !in.VerifySignature() {
		return reject(RejectBadSignature, "holder %X", []byte(in.Holder))
	}
	f.verified.Add(fp, struct{}{})
	return Verdict{}
}

// VerifiedLen returns the number of cached signature verifications.
func (f *Filter) VerifiedLen() int {
	if f.verified == nil {
		return 0
	}
	return f.verified.Len()
}

func (f *Filter) checkAsset(a types.Asset) Verdict {
	if len(f.assets) == 0 {
		return Verdict{}
	}
	rule, ok := f.assets[a.Denom]
	if !ok {
		return reject(RejectUnknownAsset, "denom %s", a.Denom)
	}
	if rule.MaxAmount > 0 && a.Amount > rule.MaxAmount {
		return reject(RejectAmountTooLarge, "%d%s exceeds %d", a.Amount, a.Denom, rule.MaxAmount)
	}
	return Verdict{}
}
