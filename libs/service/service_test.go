package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testService struct {
	BaseService
	startErr error
	stopped  chan struct{}
}

func newTestService(startErr error) *testService {
	ts := &testService{startErr: startErr, stopped: make(chan struct{})}
	ts.BaseService = *NewBaseService(nil, "TestService", ts)
	return ts
}

func (ts *testService) OnStart(context.Context) error { return ts.startErr }
func (ts *testService) OnStop()                       { close(ts.stopped) }

func TestBaseServiceWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := newTestService(nil)
	err := ts.Start(ctx)
	require.NoError(t, err)

	waitFinished := make(chan struct{})
	go func() {
		ts.Wait()
		waitFinished <- struct{}{}
	}()

	go ts.Stop() //nolint:errcheck // ignore for tests

	select {
	case <-waitFinished:
		// all good
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected Wait() to finish within 100 ms.")
	}
}

func TestBaseServiceLifecycleErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := newTestService(nil)
	require.ErrorIs(t, ts.Stop(), ErrNotStarted)

	require.NoError(t, ts.Start(ctx))
	require.True(t, ts.IsRunning())
	require.ErrorIs(t, ts.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, ts.Stop())
	require.False(t, ts.IsRunning())
	require.ErrorIs(t, ts.Stop(), ErrAlreadyStopped)
	require.ErrorIs(t, ts.Start(ctx), ErrAlreadyStopped)

	select {
	case <-ts.Quit():
	default:
		t.Fatal("quit channel should be closed after stop")
	}
}

func TestBaseServiceStartFailureCanRetry(t *testing.T) {
	ts := newTestService(errors.New("boom"))
	require.Error(t, ts.Start(context.Background()))
	require.False(t, ts.IsRunning())

	ts.startErr = nil
	require.NoError(t, ts.Start(context.Background()))
	require.NoError(t, ts.Stop())
}

func TestBaseServiceStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ts := newTestService(nil)
	require.NoError(t, ts.Start(ctx))
	cancel()

	select {
	case <-ts.stopped:
	case <-time.After(time.Second):
		t.Fatal("service was not stopped after context cancellation")
	}
}
