package intent

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMissingIntent is returned when an envelope carries no intent.
var ErrMissingIntent = errors.New("envelope carries no intent")

// skipField is returned by a fieldFunc for fields it does not know.
const skipField = -1

// fieldFunc decodes the value of one field from b and returns the number of
// bytes consumed.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

type wireMessage interface {
	Size() int
	appendTo(b []byte) []byte
}

// eachField walks every field of b. Unknown fields are skipped, any framing
// error is returned.
func eachField(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		n, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if n == skipField {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return nil
}

func wireTypeError(num protowire.Number, got, want protowire.Type) error {
	return fmt.Errorf("field %d: wire type %d, expected %d", num, got, want)
}

func consumeVarint(num protowire.Number, typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, wireTypeError(num, typ, protowire.VarintType)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeUint32(num protowire.Number, typ protowire.Type, b []byte) (uint32, int, error) {
	v, n, err := consumeVarint(num, typ, b)
	if err != nil {
		return 0, 0, err
	}
	if v > math.MaxUint32 {
		return 0, 0, fmt.Errorf("field %d: value %d overflows uint32", num, v)
	}
	return uint32(v), n, nil
}

// consumeBytes returns a copy of the length-delimited value so decoded
// messages never alias the input buffer.
func consumeBytes(num protowire.Number, typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, wireTypeError(num, typ, protowire.BytesType)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
	}
	if len(v) == 0 {
		return nil, n, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, n, nil
}

// consumeMessage decodes an embedded message into m.
func consumeMessage(num protowire.Number, typ protowire.Type, b []byte, m interface{ Unmarshal([]byte) error }) (int, error) {
	if typ != protowire.BytesType {
		return 0, wireTypeError(num, typ, protowire.BytesType)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
	}
	if err := m.Unmarshal(v); err != nil {
		return 0, fmt.Errorf("field %d: %w", num, err)
	}
	return n, nil
}

func sizeBytesField(num protowire.Number, l int) int {
	return protowire.SizeTag(num) + protowire.SizeBytes(l)
}

func sizeVarintField(num protowire.Number, v uint64) int {
	return protowire.SizeTag(num) + protowire.SizeVarint(v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendMessageField(b []byte, num protowire.Number, m wireMessage) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(m.Size()))
	return m.appendTo(b)
}

func sizeMessageField(num protowire.Number, m wireMessage) int {
	return sizeBytesField(num, m.Size())
}

func marshal(m wireMessage) []byte {
	return m.appendTo(make([]byte, 0, m.Size()))
}
