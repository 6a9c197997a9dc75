package p2p

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/gossipnet/intentd/config"
)

const dialTimeout = 5 * time.Second

// NewHost constructs a libp2p host listening on the configured addresses.
func NewHost(conf *config.P2PConfig) (host.Host, error) {
	var addrs []ma.Multiaddr
	for _, s := range conf.ListenAddresses {
		if strings.TrimSpace(s) == "" {
			continue
		}
		addr, err := ma.NewMultiaddr(s)
		if err != nil {
			return nil, fmt.Errorf("listen address %q: %w", s, err)
		}
		addrs = append(addrs, addr)
	}

	opts := []libp2p.Option{}
	if len(addrs) > 0 {
		opts = append(opts, libp2p.ListenAddrs(addrs...))
	}
	return libp2p.New(opts...)
}

// NewPubSub constructs a gossipsub router on top of host.
func NewPubSub(ctx context.Context, conf *config.P2PConfig, host host.Host) (*pubsub.PubSub, error) {
	return pubsub.NewGossipSub(ctx, host, pubsub.WithMaxMessageSize(conf.MaxMessageBytes))
}

// ParsePeerAddress parses a multiaddr ending in /p2p/<peer id>.
func ParsePeerAddress(addr string) (*peer.AddrInfo, error) {
	maddr, err := ma.NewMultiaddr(addr)
	if err != nil {
		return nil, err
	}
	return peer.AddrInfoFromP2pAddr(maddr)
}

func connectPeer(ctx context.Context, h host.Host, addr string) error {
	info, err := ParsePeerAddress(addr)
	if err != nil {
		return fmt.Errorf("peer address %q: %w", addr, err)
	}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	return h.Connect(ctx, *info)
}
