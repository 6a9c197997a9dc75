// Package intent holds the wire messages of intent.proto.
//
// The codec is maintained by hand with the surface protoc-gen-gogofaster
// would generate. TestCodecMatchesSchema fails when the struct tags and
// intent.proto disagree.
//
// TODO: generate this file from intent.proto with protoc-gen-gogofaster
// and drop the hand-written Size/Marshal/Unmarshal methods.
package intent

import (
	"fmt"

	"github.com/gogo/protobuf/proto"
	"google.golang.org/protobuf/encoding/protowire"
)

var (
	_ proto.Message = (*Asset)(nil)
	_ proto.Message = (*Intent)(nil)
	_ proto.Message = (*IntentBroadcasterMessage)(nil)
	_ proto.Message = (*Transfer)(nil)
	_ proto.Message = (*Tx)(nil)
)

func init() {
	proto.RegisterType((*Asset)(nil), "gossip.intent.Asset")
	proto.RegisterType((*Intent)(nil), "gossip.intent.Intent")
	proto.RegisterType((*IntentBroadcasterMessage)(nil), "gossip.intent.IntentBroadcasterMessage")
	proto.RegisterType((*Transfer)(nil), "gossip.intent.Transfer")
	proto.RegisterType((*Tx)(nil), "gossip.intent.Tx")
}

type Asset struct {
	Denom  string `protobuf:"bytes,1,opt,name=denom,proto3" json:"denom,omitempty"`
	Amount int64  `protobuf:"varint,2,opt,name=amount,proto3" json:"amount,omitempty"`
}

func (m *Asset) Reset()         { *m = Asset{} }
func (m *Asset) String() string { return proto.CompactTextString(m) }
func (*Asset) ProtoMessage()    {}

func (m *Asset) Size() int {
	if m == nil {
		return 0
	}
	n := 0
	if m.Denom != "" {
		n += sizeBytesField(1, len(m.Denom))
	}
	if m.Amount != 0 {
		n += sizeVarintField(2, uint64(m.Amount))
	}
	return n
}

func (m *Asset) Marshal() ([]byte, error) { return marshal(m), nil }

func (m *Asset) appendTo(b []byte) []byte {
	if m == nil {
		return b
	}
	b = appendBytesField(b, 1, []byte(m.Denom))
	return appendVarintField(b, 2, uint64(m.Amount))
}

func (m *Asset) Unmarshal(b []byte) error {
	*m = Asset{}
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeBytes(num, typ, b)
			m.Denom = string(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(num, typ, b)
			m.Amount = int64(v)
			return n, err
		}
		return skipField, nil
	})
}

type Intent struct {
	Holder    []byte `protobuf:"bytes,1,opt,name=holder,proto3" json:"holder,omitempty"`
	Have      *Asset `protobuf:"bytes,2,opt,name=have,proto3" json:"have,omitempty"`
	Want      *Asset `protobuf:"bytes,3,opt,name=want,proto3" json:"want,omitempty"`
	Expiry    int64  `protobuf:"varint,4,opt,name=expiry,proto3" json:"expiry,omitempty"`
	Nonce     uint64 `protobuf:"varint,5,opt,name=nonce,proto3" json:"nonce,omitempty"`
	Signature []byte `protobuf:"bytes,6,opt,name=signature,proto3" json:"signature,omitempty"`
}

func (m *Intent) Reset()         { *m = Intent{} }
func (m *Intent) String() string { return proto.CompactTextString(m) }
func (*Intent) ProtoMessage()    {}

func (m *Intent) GetHave() *Asset {
	if m != nil {
		return m.Have
	}
	return nil
}

func (m *Intent) GetWant() *Asset {
	if m != nil {
		return m.Want
	}
	return nil
}

func (m *Intent) Size() int {
	if m == nil {
		return 0
	}
	n := 0
	if len(m.Holder) > 0 {
		n += sizeBytesField(1, len(m.Holder))
	}
	if m.Have != nil {
		n += sizeMessageField(2, m.Have)
	}
	if m.Want != nil {
		n += sizeMessageField(3, m.Want)
	}
	if m.Expiry != 0 {
		n += sizeVarintField(4, uint64(m.Expiry))
	}
	if m.Nonce != 0 {
		n += sizeVarintField(5, m.Nonce)
	}
	if len(m.Signature) > 0 {
		n += sizeBytesField(6, len(m.Signature))
	}
	return n
}

func (m *Intent) Marshal() ([]byte, error) { return marshal(m), nil }

func (m *Intent) appendTo(b []byte) []byte {
	if m == nil {
		return b
	}
	b = appendBytesField(b, 1, m.Holder)
	if m.Have != nil {
		b = appendMessageField(b, 2, m.Have)
	}
	if m.Want != nil {
		b = appendMessageField(b, 3, m.Want)
	}
	b = appendVarintField(b, 4, uint64(m.Expiry))
	b = appendVarintField(b, 5, m.Nonce)
	return appendBytesField(b, 6, m.Signature)
}

func (m *Intent) Unmarshal(b []byte) error {
	*m = Intent{}
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeBytes(num, typ, b)
			m.Holder = v
			return n, err
		case 2:
			if m.Have != nil {
				return 0, fmt.Errorf("field %d: duplicate have", num)
			}
			m.Have = new(Asset)
			return consumeMessage(num, typ, b, m.Have)
		case 3:
			if m.Want != nil {
				return 0, fmt.Errorf("field %d: duplicate want", num)
			}
			m.Want = new(Asset)
			return consumeMessage(num, typ, b, m.Want)
		case 4:
			v, n, err := consumeVarint(num, typ, b)
			m.Expiry = int64(v)
			return n, err
		case 5:
			v, n, err := consumeVarint(num, typ, b)
			m.Nonce = v
			return n, err
		case 6:
			v, n, err := consumeBytes(num, typ, b)
			m.Signature = v
			return n, err
		}
		return skipField, nil
	})
}

type IntentBroadcasterMessage struct {
	Intent *Intent `protobuf:"bytes,1,opt,name=intent,proto3" json:"intent,omitempty"`
	Ttl    uint32  `protobuf:"varint,2,opt,name=ttl,proto3" json:"ttl,omitempty"`
	Hops   uint32  `protobuf:"varint,3,opt,name=hops,proto3" json:"hops,omitempty"`
}

func (m *IntentBroadcasterMessage) Reset()         { *m = IntentBroadcasterMessage{} }
func (m *IntentBroadcasterMessage) String() string { return proto.CompactTextString(m) }
func (*IntentBroadcasterMessage) ProtoMessage()    {}

func (m *IntentBroadcasterMessage) GetIntent() *Intent {
	if m != nil {
		return m.Intent
	}
	return nil
}

func (m *IntentBroadcasterMessage) Size() int {
	if m == nil {
		return 0
	}
	n := 0
	if m.Intent != nil {
		n += sizeMessageField(1, m.Intent)
	}
	if m.Ttl != 0 {
		n += sizeVarintField(2, uint64(m.Ttl))
	}
	if m.Hops != 0 {
		n += sizeVarintField(3, uint64(m.Hops))
	}
	return n
}

func (m *IntentBroadcasterMessage) Marshal() ([]byte, error) { return marshal(m), nil }

func (m *IntentBroadcasterMessage) appendTo(b []byte) []byte {
	if m == nil {
		return b
	}
	if m.Intent != nil {
		b = appendMessageField(b, 1, m.Intent)
	}
	b = appendVarintField(b, 2, uint64(m.Ttl))
	return appendVarintField(b, 3, uint64(m.Hops))
}

// Unmarshal decodes an envelope. Unlike plain proto3 merging, a repeated
// intent field is an error, as is an envelope without one.
func (m *IntentBroadcasterMessage) Unmarshal(b []byte) error {
	*m = IntentBroadcasterMessage{}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			if m.Intent != nil {
				return 0, fmt.Errorf("field %d: duplicate intent", num)
			}
			m.Intent = new(Intent)
			return consumeMessage(num, typ, b, m.Intent)
		case 2:
			v, n, err := consumeUint32(num, typ, b)
			m.Ttl = v
			return n, err
		case 3:
			v, n, err := consumeUint32(num, typ, b)
			m.Hops = v
			return n, err
		}
		return skipField, nil
	})
	if err != nil {
		return err
	}
	if m.Intent == nil {
		return ErrMissingIntent
	}
	return nil
}

type Transfer struct {
	From  []byte `protobuf:"bytes,1,opt,name=from,proto3" json:"from,omitempty"`
	To    []byte `protobuf:"bytes,2,opt,name=to,proto3" json:"to,omitempty"`
	Asset *Asset `protobuf:"bytes,3,opt,name=asset,proto3" json:"asset,omitempty"`
}

func (m *Transfer) Reset()         { *m = Transfer{} }
func (m *Transfer) String() string { return proto.CompactTextString(m) }
func (*Transfer) ProtoMessage()    {}

func (m *Transfer) Size() int {
	if m == nil {
		return 0
	}
	n := 0
	if len(m.From) > 0 {
		n += sizeBytesField(1, len(m.From))
	}
	if len(m.To) > 0 {
		n += sizeBytesField(2, len(m.To))
	}
	if m.Asset != nil {
		n += sizeMessageField(3, m.Asset)
	}
	return n
}

func (m *Transfer) Marshal() ([]byte, error) { return marshal(m), nil }

func (m *Transfer) appendTo(b []byte) []byte {
	if m == nil {
		return b
	}
	b = appendBytesField(b, 1, m.From)
	b = appendBytesField(b, 2, m.To)
	if m.Asset != nil {
		b = appendMessageField(b, 3, m.Asset)
	}
	return b
}

func (m *Transfer) Unmarshal(b []byte) error {
	*m = Transfer{}
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeBytes(num, typ, b)
			m.From = v
			return n, err
		case 2:
			v, n, err := consumeBytes(num, typ, b)
			m.To = v
			return n, err
		case 3:
			if m.Asset != nil {
				return 0, fmt.Errorf("field %d: duplicate asset", num)
			}
			m.Asset = new(Asset)
			return consumeMessage(num, typ, b, m.Asset)
		}
		return skipField, nil
	})
}

type Tx struct {
	Intents   []*Intent   `protobuf:"bytes,1,rep,name=intents,proto3" json:"intents,omitempty"`
	Transfers []*Transfer `protobuf:"bytes,2,rep,name=transfers,proto3" json:"transfers,omitempty"`
	Timestamp int64       `protobuf:"varint,3,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

func (m *Tx) Reset()         { *m = Tx{} }
func (m *Tx) String() string { return proto.CompactTextString(m) }
func (*Tx) ProtoMessage()    {}

func (m *Tx) Size() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, e := range m.Intents {
		n += sizeMessageField(1, e)
	}
	for _, e := range m.Transfers {
		n += sizeMessageField(2, e)
	}
	if m.Timestamp != 0 {
		n += sizeVarintField(3, uint64(m.Timestamp))
	}
	return n
}

func (m *Tx) Marshal() ([]byte, error) { return marshal(m), nil }

func (m *Tx) appendTo(b []byte) []byte {
	if m == nil {
		return b
	}
	for _, e := range m.Intents {
		b = appendMessageField(b, 1, e)
	}
	for _, e := range m.Transfers {
		b = appendMessageField(b, 2, e)
	}
	return appendVarintField(b, 3, uint64(m.Timestamp))
}

func (m *Tx) Unmarshal(b []byte) error {
	*m = Tx{}
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			e := new(Intent)
			n, err := consumeMessage(num, typ, b, e)
			m.Intents = append(m.Intents, e)
			return n, err
		case 2:
			e := new(Transfer)
			n, err := consumeMessage(num, typ, b, e)
			m.Transfers = append(m.Transfers, e)
			return n, err
		case 3:
			v, n, err := consumeVarint(num, typ, b)
			m.Timestamp = int64(v)
			return n, err
		}
		return skipField, nil
	})
}
