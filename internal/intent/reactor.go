package intent

import (
	"context"
	"fmt"

	"github.com/creachadair/taskgroup"

	"github.com/gossipnet/intentd/internal/p2p"
	"github.com/gossipnet/intentd/libs/log"
	"github.com/gossipnet/intentd/libs/service"
	"github.com/gossipnet/intentd/types"
)

// Reactor connects a gossip transport to a GossipIntent. A fixed pool of
// workers decodes inbound envelopes and applies their intents. Failures are
// logged per message and never stop the reactor.
type Reactor struct {
	service.BaseService

	logger    log.Logger
	gi        *GossipIntent
	transport p2p.Transport
	workers   int

	done chan struct{}
}

// NewReactor returns a reactor running workers goroutines.
func NewReactor(logger log.Logger, gi *GossipIntent, transport p2p.Transport, workers int) *Reactor {
	if workers <= 0 {
		workers = 1
	}
	r := &Reactor{
		logger:    logger,
		gi:        gi,
		transport: transport,
		workers:   workers,
		done:      make(chan struct{}),
	}
	r.BaseService = *service.NewBaseService(logger, "Intent", r)
	return r
}

// OnStart starts the workers. The transport and the GossipIntent are
// started by the caller.
func (r *Reactor) OnStart(ctx context.Context) error {
	g := taskgroup.New(nil)
	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			r.processEnvelopes(ctx)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(r.done)
	}()
	return nil
}

// OnStop waits for every worker to finish its current message.
func (r *Reactor) OnStop() {
	<-r.done
}

// BroadcastIntent applies a locally created intent and publishes it to the
// network.
func (r *Reactor) BroadcastIntent(ctx context.Context, msg *types.IntentBroadcasterMessage) error {
	if err := msg.ValidateBasic(); err != nil {
		return fmt.Errorf("invalid intent message: %w", err)
	}
	if _, err := r.gi.ApplyIntent(ctx, msg.Intent); err != nil {
		r.logger.Error("failed to apply local intent", "fingerprint", msg.Intent.Fingerprint(), "err", err)
	}
	return r.transport.Broadcast(ctx, msg.Bytes())
}

func (r *Reactor) processEnvelopes(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.Quit():
			return
		case env := <-r.transport.Receive():
			r.handleEnvelope(ctx, env)
		}
	}
}

func (r *Reactor) handleEnvelope(ctx context.Context, env p2p.Envelope) {
	msg, err := r.gi.ParseRawMsg(env.Message)
	if err != nil {
		r.logger.Debug("dropping undecodable message", "peer", env.From, "err", err)
		return
	}

	if _, err := r.gi.ApplyIntent(ctx, msg.Intent); err != nil {
		r.logger.Error("failed to apply intent",
			"peer", env.From,
			"fingerprint", msg.Intent.Fingerprint(),
			"err", err,
		)
	}
}
