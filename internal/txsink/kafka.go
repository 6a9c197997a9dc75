package txsink

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/gossipnet/intentd/config"
	"github.com/gossipnet/intentd/types"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink produces every transaction to a Kafka topic, keyed by the
// transaction hash.
type KafkaSink struct {
	writer       messageWriter
	writeTimeout time.Duration
}

var _ Sink = (*KafkaSink)(nil)

// NewKafkaSink returns a synchronous producer waiting for all in-sync
// replicas to acknowledge each transaction.
func NewKafkaSink(cfg *config.TxSinkConfig) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: cfg.WriteTimeout,
		},
		writeTimeout: cfg.WriteTimeout,
	}
}

func (s *KafkaSink) Submit(ctx context.Context, tx *types.Tx) error {
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}

	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   tx.Hash(),
		Value: tx.Bytes(),
		Time:  tx.Timestamp,
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
