package txsink

import (
	"context"

	"github.com/gossipnet/intentd/libs/log"
	"github.com/gossipnet/intentd/types"
)

// Pump submits every transaction received on txs to sink until txs is
// closed or ctx is done. Failed submissions are logged and dropped; the
// intents they consumed are not returned to the mempool.
func Pump(ctx context.Context, logger log.Logger, txs <-chan *types.Tx, sink Sink, metrics *Metrics) {
	if metrics == nil {
		metrics = NopMetrics()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case tx, ok := <-txs:
			if !ok {
				return
			}

			if err := sink.Submit(ctx, tx); err != nil {
				metrics.Failures.Add(1)
				logger.Error("failed to submit transaction", "hash", tx.Hash(), "err", err)
				continue
			}
			metrics.Submitted.Add(1)
		}
	}
}
