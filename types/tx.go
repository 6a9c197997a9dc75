package types

import (
	"fmt"
	"time"

	"github.com/gossipnet/intentd/crypto"
	"github.com/gossipnet/intentd/crypto/ed25519"
	tmbytes "github.com/gossipnet/intentd/libs/bytes"
	intentproto "github.com/gossipnet/intentd/proto/gossip/intent"
)

// Transfer moves Asset from the holder From to the holder To.
type Transfer struct {
	From  ed25519.PubKey
	To    ed25519.PubKey
	Asset Asset
}

// Tx realizes a MatchSet. It carries every member intent, so the ledger can
// check the signatures, and one transfer per cycle edge.
type Tx struct {
	Intents   []*Intent
	Transfers []Transfer
	Timestamp time.Time
}

// NewTx validates set and builds the transaction realizing it.
func NewTx(set MatchSet, ts time.Time) (*Tx, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	tx := &Tx{
		Intents:   make([]*Intent, len(set)),
		Transfers: make([]Transfer, len(set)),
		Timestamp: ts.UTC(),
	}
	copy(tx.Intents, set)
	for i, in := range set {
		giver := set.Giver(i)
		tx.Transfers[i] = Transfer{From: giver.Holder, To: in.Holder, Asset: in.Want}
	}
	return tx, nil
}

func (tx *Tx) ToProto() *intentproto.Tx {
	ptx := &intentproto.Tx{
		Intents:   make([]*intentproto.Intent, len(tx.Intents)),
		Transfers: make([]*intentproto.Transfer, len(tx.Transfers)),
	}
	for i, in := range tx.Intents {
		ptx.Intents[i] = in.ToProto()
	}
	for i, tr := range tx.Transfers {
		ptx.Transfers[i] = &intentproto.Transfer{From: tr.From, To: tr.To, Asset: tr.Asset.ToProto()}
	}
	if !tx.Timestamp.IsZero() {
		ptx.Timestamp = tx.Timestamp.UnixNano()
	}
	return ptx
}

func TxFromProto(ptx *intentproto.Tx) (*Tx, error) {
	tx := &Tx{
		Intents:   make([]*Intent, len(ptx.Intents)),
		Transfers: make([]Transfer, len(ptx.Transfers)),
	}
	for i, pi := range ptx.Intents {
		in, err := IntentFromProto(pi)
		if err != nil {
			return nil, fmt.Errorf("intent %d: %w", i, err)
		}
		tx.Intents[i] = in
	}
	for i, pt := range ptx.Transfers {
		tx.Transfers[i] = Transfer{
			From:  ed25519.PubKey(pt.From),
			To:    ed25519.PubKey(pt.To),
			Asset: AssetFromProto(pt.Asset),
		}
	}
	if ptx.Timestamp != 0 {
		tx.Timestamp = time.Unix(0, ptx.Timestamp).UTC()
	}
	return tx, nil
}

// Bytes returns the canonical encoding handed to the submission pipeline.
func (tx *Tx) Bytes() []byte {
	bz, err := tx.ToProto().Marshal()
	if err != nil {
		panic(err)
	}
	return bz
}

// Hash computes the SHA-256 of the canonical encoding.
func (tx *Tx) Hash() tmbytes.HexBytes {
	return crypto.Checksum(tx.Bytes())
}

func (tx *Tx) Fingerprints() []Fingerprint {
	fps := make([]Fingerprint, len(tx.Intents))
	for i, in := range tx.Intents {
		fps[i] = in.Fingerprint()
	}
	return fps
}

func (tx *Tx) String() string {
	return fmt.Sprintf("Tx{%v intents:%d}", tx.Hash().ShortString(), len(tx.Intents))
}

// TxFromBytes decodes a transaction.
func TxFromBytes(bz []byte) (*Tx, error) {
	var ptx intentproto.Tx
	if err := ptx.Unmarshal(bz); err != nil {
		return nil, err
	}
	return TxFromProto(&ptx)
}
