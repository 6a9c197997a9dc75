package types

import (
	"fmt"

	intentproto "github.com/gossipnet/intentd/proto/gossip/intent"
)

// MaxDenomLength is the longest accepted asset denomination.
const MaxDenomLength = 64

// Asset is an amount of a single denomination.
type Asset struct {
	Denom  string
	Amount int64
}

func (a Asset) String() string {
	return fmt.Sprintf("%d%s", a.Amount, a.Denom)
}

// ValidateDenom checks that denom is 1..64 characters of [A-Za-z0-9/._-].
func ValidateDenom(denom string) error {
	if len(denom) == 0 {
		return fmt.Errorf("empty denom")
	}
	if len(denom) > MaxDenomLength {
		return fmt.Errorf("denom is too long: %d > %d", len(denom), MaxDenomLength)
	}
	for i := 0; i < len(denom); i++ {
		c := denom[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case c == '/', c == '.', c == '_', c == '-':
		default:
			return fmt.Errorf("denom %q has invalid character %q", denom, c)
		}
	}
	return nil
}

func (a Asset) ToProto() *intentproto.Asset {
	return &intentproto.Asset{Denom: a.Denom, Amount: a.Amount}
}

func AssetFromProto(pa *intentproto.Asset) Asset {
	if pa == nil {
		return Asset{}
	}
	return Asset{Denom: pa.Denom, Amount: pa.Amount}
}
