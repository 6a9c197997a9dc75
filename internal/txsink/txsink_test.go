package txsink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gossipnet/intentd/config"
	"github.com/gossipnet/intentd/internal/test/factory"
	"github.com/gossipnet/intentd/libs/log"
	"github.com/gossipnet/intentd/types"
)

type fakeWriter struct {
	mtx    sync.Mutex
	msgs   []kafka.Message
	fail   error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing write deadline")
	}
	if w.fail != nil {
		return w.fail
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) messages() []kafka.Message {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

func makeTx(t *testing.T, prefix string) *types.Tx {
	t.Helper()
	tx, err := types.NewTx(factory.MakeCycle(prefix, 2, 5), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return tx
}

func TestNew(t *testing.T) {
	cfg := config.DefaultTxSinkConfig()
	sink, err := New(log.NewNopLogger(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &LogSink{}, sink)

	cfg.Type = config.TxSinkKafka
	cfg.Brokers = []string{"localhost:9092"}
	sink, err = New(log.NewNopLogger(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &KafkaSink{}, sink)
	require.NoError(t, sink.Close())

	cfg.Type = "webhook"
	_, err = New(log.NewNopLogger(), cfg)
	assert.Error(t, err)
}

func TestKafkaSinkSubmit(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{writer: w, writeTimeout: time.Second}
	tx := makeTx(t, "kafka")

	require.NoError(t, sink.Submit(context.Background(), tx))
	msgs := w.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte(tx.Hash()), msgs[0].Key)
	assert.Equal(t, tx.Timestamp, msgs[0].Time)

	decoded, err := types.TxFromBytes(msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), decoded.Hash())

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestPump(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{writer: w, writeTimeout: time.Second}

	txs := make(chan *types.Tx, 3)
	first, second := makeTx(t, "first"), makeTx(t, "second")
	txs <- first
	txs <- second
	close(txs)

	done := make(chan struct{})
	go func() {
		Pump(context.Background(), log.TestingLogger(), txs, sink, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pump did not return after the channel closed")
	}
	msgs := w.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte(first.Hash()), msgs[0].Key)
	assert.Equal(t, []byte(second.Hash()), msgs[1].Key)
}

func TestPumpDropsFailedSubmissions(t *testing.T) {
	w := &fakeWriter{fail: errors.New("broker unavailable")}
	sink := &KafkaSink{writer: w, writeTimeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	txs := make(chan *types.Tx)
	done := make(chan struct{})
	go func() {
		Pump(ctx, log.TestingLogger(), txs, sink, nil)
		close(done)
	}()

	// a failure does not stop the pump
	txs <- makeTx(t, "first")
	txs <- makeTx(t, "second")

	cancel()
	<-done
	assert.Empty(t, w.messages())
}

func TestLogSink(t *testing.T) {
	sink := NewLogSink(log.TestingLogger())
	require.NoError(t, sink.Submit(context.Background(), makeTx(t, "log")))
	require.NoError(t, sink.Close())
}
