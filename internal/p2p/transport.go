package p2p

import (
	"context"
	"errors"

	"github.com/gossipnet/intentd/libs/service"
)

// ErrNotRunning is returned when broadcasting on a transport that is not
// running.
var ErrNotRunning = errors.New("transport is not running")

// Envelope is a raw gossip message together with the peer it came from.
type Envelope struct {
	// From identifies the sending peer. Its format is transport specific.
	From string
	// Message is the untrusted payload, to be decoded by the caller.
	Message []byte
}

// Transport delivers raw gossip messages published on the intent topic by
// other peers and publishes local ones. Delivery is at least once, unordered
// and may contain duplicates.
type Transport interface {
	service.Service

	// Receive returns the channel inbound envelopes are delivered on.
	// The channel is never closed; consumers stop with the transport.
	Receive() <-chan Envelope

	// Broadcast publishes msg to the topic. It blocks until msg was handed
	// to the network, ctx is done or the transport stops.
	Broadcast(ctx context.Context, msg []byte) error
}
