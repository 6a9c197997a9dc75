// Package txsink submits transactions crafted by the matchmaker to the
// outside world.
package txsink

import (
	"context"
	"fmt"

	"github.com/gossipnet/intentd/config"
	"github.com/gossipnet/intentd/libs/log"
	"github.com/gossipnet/intentd/types"
)

// Sink submits crafted transactions.
type Sink interface {
	Submit(ctx context.Context, tx *types.Tx) error
	Close() error
}

// New returns the sink selected by cfg.
func New(logger log.Logger, cfg *config.TxSinkConfig) (Sink, error) {
	switch cfg.Type {
	case config.TxSinkLog:
		return NewLogSink(logger), nil
	case config.TxSinkKafka:
		return NewKafkaSink(cfg), nil
	default:
		return nil, fmt.Errorf("unknown tx sink type %q", cfg.Type)
	}
}

// LogSink logs every transaction. It is the default sink of standalone
// nodes.
type LogSink struct {
	logger log.Logger
}

var _ Sink = (*LogSink)(nil)

func NewLogSink(logger log.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Submit(_ context.Context, tx *types.Tx) error {
	s.logger.Info("crafted transaction",
		"hash", tx.Hash(),
		"intents", len(tx.Intents),
		"transfers", len(tx.Transfers),
		"tx", tx.String(),
	)
	return nil
}

func (s *LogSink) Close() error { return nil }
