// Package crypto defines the key interfaces intents are signed with.
package crypto

import (
	crand "crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/gossipnet/intentd/libs/bytes"
)

// AddressSize is the size of a holder address.
const AddressSize = 20

// Address identifies a holder in logs and key files. It is hex-encoded in
// JSON.
type Address = bytes.HexBytes

// AddressHash returns the first AddressSize bytes of the SHA-256 of bz.
func AddressHash(bz []byte) Address {
	h := sha256.Sum256(bz)
	return Address(h[:AddressSize])
}

// Checksum returns the SHA-256 of bz.
func Checksum(bz []byte) []byte {
	h := sha256.Sum256(bz)
	return h[:]
}

type PubKey interface {
	Address() Address
	Bytes() []byte
	VerifySignature(msg []byte, sig []byte) bool
	Equals(PubKey) bool
	Type() string
}

type PrivKey interface {
	Bytes() []byte
	Sign(msg []byte) ([]byte, error)
	PubKey() PubKey
	Equals(PrivKey) bool
	Type() string
}

// CRandBytes returns numBytes bytes read from the OS entropy source. It
// panics if the source fails.
func CRandBytes(numBytes int) []byte {
	b := make([]byte, numBytes)
	if _, err := io.ReadFull(crand.Reader, b); err != nil {
		panic(err)
	}
	return b
}

// CReader returns the OS entropy source.
func CReader() io.Reader {
	return crand.Reader
}
