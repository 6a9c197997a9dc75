package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/creachadair/atomicfile"

	"github.com/gossipnet/intentd/crypto"
	"github.com/gossipnet/intentd/crypto/ed25519"
	tmbytes "github.com/gossipnet/intentd/libs/bytes"
	tmos "github.com/gossipnet/intentd/libs/os"
)

// TODO: encrypt on disk

// HolderKey is the persistent key a node signs its own intents with.
type HolderKey struct {
	// hex-encoded address of the public key
	Address crypto.Address `json:"address"`
	// hex-encoded public key
	PubKey tmbytes.HexBytes `json:"pub_key"`
	// hex-encoded private key, seed followed by the public key
	PrivKey tmbytes.HexBytes `json:"priv_key"`
}

// NewHolderKey wraps priv.
func NewHolderKey(priv ed25519.PrivKey) HolderKey {
	pub := priv.PubKey()
	return HolderKey{
		Address: pub.Address(),
		PubKey:  pub.Bytes(),
		PrivKey: tmbytes.HexBytes(priv),
	}
}

// GenHolderKey generates a new holder key.
func GenHolderKey() HolderKey {
	return NewHolderKey(ed25519.GenPrivKey())
}

// PrivKeyEd25519 returns the private key.
func (hk HolderKey) PrivKeyEd25519() ed25519.PrivKey {
	return ed25519.PrivKey(hk.PrivKey)
}

// SaveAs persists the HolderKey to filePath.
func (hk HolderKey) SaveAs(filePath string) error {
	jsonBytes, err := json.MarshalIndent(hk, "", "  ")
	if err != nil {
		return err
	}
	_, err = atomicfile.WriteAll(filePath, bytes.NewReader(jsonBytes), 0600)
	return err
}

// LoadHolderKey loads the HolderKey located in filePath and checks that its
// fields are consistent.
func LoadHolderKey(filePath string) (HolderKey, error) {
	jsonBytes, err := os.ReadFile(filePath)
	if err != nil {
		return HolderKey{}, err
	}

	var hk HolderKey
	if err := json.Unmarshal(jsonBytes, &hk); err != nil {
		return HolderKey{}, fmt.Errorf("reading holder key %s: %w", filePath, err)
	}
	priv, err := ed25519.PrivKeyFromBytes(hk.PrivKey)
	if err != nil {
		return HolderKey{}, fmt.Errorf("holder key %s: %w", filePath, err)
	}

	loaded := NewHolderKey(priv)
	if !bytes.Equal(loaded.PubKey, hk.PubKey) || !bytes.Equal(loaded.Address, hk.Address) {
		return HolderKey{}, fmt.Errorf("holder key %s: public key does not match private key", filePath)
	}
	return loaded, nil
}

// LoadOrGenHolderKey attempts to load the HolderKey from the given filePath.
// If the file does not exist, it generates and saves a new HolderKey.
func LoadOrGenHolderKey(filePath string) (HolderKey, error) {
	if tmos.FileExists(filePath) {
		return LoadHolderKey(filePath)
	}

	hk := GenHolderKey()
	if err := hk.SaveAs(filePath); err != nil {
		return HolderKey{}, err
	}
	return hk, nil
}
