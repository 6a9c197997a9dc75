package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gossipnet/intentd/crypto"
	"github.com/gossipnet/intentd/crypto/ed25519"
	tmbytes "github.com/gossipnet/intentd/libs/bytes"
	intentproto "github.com/gossipnet/intentd/proto/gossip/intent"
)

// Fingerprint is the SHA-256 of the canonical encoding of an intent,
// signature included.
type Fingerprint [sha256.Size]byte

func (fp Fingerprint) String() string {
	return strings.ToUpper(hex.EncodeToString(fp[:]))
}

// MarshalText encodes the fingerprint as upper-case hex in logs and JSON.
func (fp Fingerprint) MarshalText() ([]byte, error) {
	return []byte(fp.String()), nil
}

// Expiries are encoded as Unix nanoseconds, with 0 meaning no expiry.
var (
	minExpiry = time.Unix(0, 1)
	maxExpiry = time.Unix(0, math.MaxInt64)
)

// ShortString is used to tag log lines.
func (fp Fingerprint) ShortString() string {
	return fp.String()[:12]
}

// Intent declares that Holder gives Have in exchange for Want. A zero Expiry
// never expires. Intents must not be mutated once decoded or signed.
type Intent struct {
	Holder    ed25519.PubKey
	Have      Asset
	Want      Asset
	Expiry    time.Time
	Nonce     uint64
	Signature []byte
}

// ToProto converts the intent to its wire type.
func (in *Intent) ToProto() *intentproto.Intent {
	if in == nil {
		return nil
	}
	pi := &intentproto.Intent{
		Holder:    in.Holder,
		Have:      in.Have.ToProto(),
		Want:      in.Want.ToProto(),
		Nonce:     in.Nonce,
		Signature: in.Signature,
	}
	if !in.Expiry.IsZero() {
		pi.Expiry = in.Expiry.UnixNano()
	}
	return pi
}

// IntentFromProto converts a wire intent. Both assets must be present.
func IntentFromProto(pi *intentproto.Intent) (*Intent, error) {
	if pi == nil {
		return nil, errors.New("nil intent")
	}
	if pi.Have == nil {
		return nil, ErrInvalidIntent{Reason: "missing have"}
	}
	if pi.Want == nil {
		return nil, ErrInvalidIntent{Reason: "missing want"}
	}
	in := &Intent{
		Holder:    ed25519.PubKey(pi.Holder),
		Have:      AssetFromProto(pi.Have),
		Want:      AssetFromProto(pi.Want),
		Nonce:     pi.Nonce,
		Signature: pi.Signature,
	}
	if pi.Expiry != 0 {
		in.Expiry = time.Unix(0, pi.Expiry).UTC()
	}
	return in, nil
}

// Bytes returns the canonical encoding of the intent.
func (in *Intent) Bytes() []byte {
	bz, err := in.ToProto().Marshal()
	if err != nil {
		panic(err)
	}
	return bz
}

// SignBytes returns the canonical encoding with the signature cleared.
func (in *Intent) SignBytes() []byte {
	cp := *in
	cp.Signature = nil
	return cp.Bytes()
}

// Fingerprint identifies the intent independently of the path it arrived on.
func (in *Intent) Fingerprint() Fingerprint {
	return sha256.Sum256(in.Bytes())
}

// Sign sets the holder from priv and signs the intent.
func (in *Intent) Sign(priv crypto.PrivKey) error {
	pub, ok := priv.PubKey().(ed25519.PubKey)
	if !ok {
		return fmt.Errorf("unsupported key type %s", priv.Type())
	}
	if err := in.validateExpiry(); err != nil {
		return err
	}
	in.Holder = pub
	in.Signature = nil
	sig, err := priv.Sign(in.SignBytes())
	if err != nil {
		return err
	}
	in.Signature = sig
	return nil
}

// VerifySignature reports whether Signature is a valid signature of
// SignBytes by Holder.
func (in *Intent) VerifySignature() bool {
	return in.Holder.VerifySignature(in.SignBytes(), in.Signature)
}

// IsExpired reports whether the intent has an expiry at or before now.
func (in *Intent) IsExpired(now time.Time) bool {
	return !in.Expiry.IsZero() && !now.Before(in.Expiry)
}

// ValidateBasic performs structural checks only. It does not verify the
// signature.
func (in *Intent) ValidateBasic() error {
	if in == nil {
		return ErrInvalidIntent{Reason: "nil intent"}
	}
	if err := ed25519.ValidatePubKey(in.Holder); err != nil {
		return ErrInvalidIntent{Reason: err.Error()}
	}
	if err := ValidateDenom(in.Have.Denom); err != nil {
		return ErrInvalidIntent{Reason: "have: " + err.Error()}
	}
	if err := ValidateDenom(in.Want.Denom); err != nil {
		return ErrInvalidIntent{Reason: "want: " + err.Error()}
	}
	if err := in.validateExpiry(); err != nil {
		return err
	}
	if len(in.Signature) != ed25519.SignatureSize {
		return ErrInvalidIntent{
			Reason: fmt.Sprintf("signature must be %d bytes, got %d", ed25519.SignatureSize, len(in.Signature)),
		}
	}
	return nil
}

func (in *Intent) validateExpiry() error {
	if in.Expiry.IsZero() {
		return nil
	}
	if in.Expiry.Before(minExpiry) || in.Expiry.After(maxExpiry) {
		return ErrInvalidIntent{
			Reason: fmt.Sprintf("expiry %v outside [%v, %v]", in.Expiry, minExpiry.UTC(), maxExpiry.UTC()),
		}
	}
	return nil
}

func (in *Intent) String() string {
	if in == nil {
		return "nil-Intent"
	}
	return fmt.Sprintf("Intent{%v gives %v for %v #%d}",
		tmbytes.HexBytes(in.Holder).ShortString(), in.Have, in.Want, in.Nonce)
}

// IntentBroadcasterMessage is the gossip envelope of exactly one intent.
type IntentBroadcasterMessage struct {
	Intent *Intent
	TTL    uint32
	Hops   uint32
}

func (m *IntentBroadcasterMessage) ToProto() *intentproto.IntentBroadcasterMessage {
	return &intentproto.IntentBroadcasterMessage{
		Intent: m.Intent.ToProto(),
		Ttl:    m.TTL,
		Hops:   m.Hops,
	}
}

// Bytes returns the wire encoding of the envelope.
func (m *IntentBroadcasterMessage) Bytes() []byte {
	bz, err := m.ToProto().Marshal()
	if err != nil {
		panic(err)
	}
	return bz
}

// ValidateBasic checks the envelope and the structure of its intent.
func (m *IntentBroadcasterMessage) ValidateBasic() error {
	if m.Intent == nil {
		return intentproto.ErrMissingIntent
	}
	return m.Intent.ValidateBasic()
}

// BroadcasterMessageFromBytes decodes an envelope from untrusted bytes.
// It never panics.
func BroadcasterMessageFromBytes(bz []byte) (*IntentBroadcasterMessage, error) {
	var pm intentproto.IntentBroadcasterMessage
	if err := pm.Unmarshal(bz); err != nil {
		return nil, err
	}
	in, err := IntentFromProto(pm.Intent)
	if err != nil {
		return nil, err
	}
	return &IntentBroadcasterMessage{Intent: in, TTL: pm.Ttl, Hops: pm.Hops}, nil
}
