package service

import (
	"context"
	"errors"
	"sync"

	"github.com/gossipnet/intentd/libs/log"
)

var (
	// ErrAlreadyStarted is returned by Start on a running service.
	ErrAlreadyStarted = errors.New("already started")
	// ErrAlreadyStopped is returned by Start and Stop on a stopped service.
	// A stopped service cannot be restarted.
	ErrAlreadyStopped = errors.New("already stopped")
	// ErrNotStarted is returned by Stop on a service that was never started.
	ErrNotStarted = errors.New("not started")
)

// Service is a component with a start/stop lifecycle.
type Service interface {
	// Start starts the service. The service runs until Stop is called or
	// ctx is canceled, whichever happens first.
	Start(context.Context) error

	// Stop stops the service and waits for OnStop to return.
	Stop() error

	IsRunning() bool

	String() string

	// Wait blocks until Stop has been called.
	Wait()
}

// Implementation is the set of hooks a BaseService drives.
type Implementation interface {
	Service

	// OnStart is called once by Start. Returning an error leaves the
	// service startable again.
	OnStart(context.Context) error

	// OnStop is called once by Stop, after the quit channel is closed.
	OnStop()
}

type state uint8

const (
	stateNew state = iota
	stateRunning
	stateStopped
)

// BaseService implements the Service lifecycle for an Implementation that
// embeds it:
//
//	type Matchmaker struct {
//		service.BaseService
//		...
//	}
//
//	mm.BaseService = *service.NewBaseService(logger, "Matchmaker", mm)
//
// Goroutines started in OnStart should leave on Quit or on their context.
// It is ok to call Stop without calling Start first.
type BaseService struct {
	logger log.Logger
	name   string
	impl   Implementation

	mtx   sync.Mutex
	state state
	quit  chan struct{}
}

// NewBaseService creates a new BaseService.
func NewBaseService(logger log.Logger, name string, impl Implementation) *BaseService {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &BaseService{
		logger: logger,
		name:   name,
		impl:   impl,
		quit:   make(chan struct{}),
	}
}

// Start calls OnStart and stops the service once ctx is canceled.
func (bs *BaseService) Start(ctx context.Context) error {
	bs.mtx.Lock()
	switch bs.state {
	case stateRunning:
		bs.mtx.Unlock()
		return ErrAlreadyStarted
	case stateStopped:
		bs.mtx.Unlock()
		bs.logger.Error("not starting service; already stopped", "service", bs.name)
		return ErrAlreadyStopped
	}
	bs.state = stateRunning
	bs.mtx.Unlock()

	bs.logger.Info("starting service", "service", bs.name, "impl", bs.impl.String())
	if err := bs.impl.OnStart(ctx); err != nil {
		bs.mtx.Lock()
		bs.state = stateNew
		bs.mtx.Unlock()
		return err
	}

	go bs.stopOnDone(ctx)
	return nil
}

func (bs *BaseService) stopOnDone(ctx context.Context) {
	select {
	case <-bs.quit:
	case <-ctx.Done():
		if err := bs.Stop(); err != nil && !errors.Is(err, ErrAlreadyStopped) {
			bs.logger.Error("failed to stop service", "service", bs.name, "err", err)
		}
	}
}

// Stop closes the quit channel and calls OnStop.
func (bs *BaseService) Stop() error {
	bs.mtx.Lock()
	switch bs.state {
	case stateNew:
		bs.mtx.Unlock()
		return ErrNotStarted
	case stateStopped:
		bs.mtx.Unlock()
		return ErrAlreadyStopped
	}
	bs.state = stateStopped
	bs.mtx.Unlock()

	bs.logger.Info("stopping service", "service", bs.name, "impl", bs.impl.String())
	close(bs.quit)
	bs.impl.OnStop()
	return nil
}

// IsRunning reports whether Start succeeded and Stop was not called yet.
func (bs *BaseService) IsRunning() bool {
	bs.mtx.Lock()
	defer bs.mtx.Unlock()

	return bs.state == stateRunning
}

// Wait blocks until Stop has been called.
func (bs *BaseService) Wait() { <-bs.quit }

// Quit returns a channel that is closed once Stop has been called.
func (bs *BaseService) Quit() <-chan struct{} { return bs.quit }

func (bs *BaseService) String() string { return bs.name }
