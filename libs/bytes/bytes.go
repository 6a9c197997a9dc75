package bytes

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexBytes is a byte slice that prints, and encodes in JSON and TOML, as
// upper-case hex. Holder keys, addresses and transaction hashes use it.
type HexBytes []byte

func (bz HexBytes) MarshalText() ([]byte, error) {
	return []byte(bz.String()), nil
}

func (bz *HexBytes) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*bz = nil
		return nil
	}
	dec, err := hex.DecodeString(string(data))
	if err != nil {
		return fmt.Errorf("invalid hex bytes: %w", err)
	}
	*bz = dec
	return nil
}

func (bz HexBytes) Bytes() []byte {
	return bz
}

func (bz HexBytes) String() string {
	return strings.ToUpper(hex.EncodeToString(bz))
}

// ShortString returns the first three bytes in hex, used as a log tag.
func (bz HexBytes) ShortString() string {
	if len(bz) < 3 {
		return bz.String()
	}
	return HexBytes(bz[:3]).String()
}
