package matchmaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gossipnet/intentd/config"
	"github.com/gossipnet/intentd/internal/intent/mempool"
	"github.com/gossipnet/intentd/libs/log"
	"github.com/gossipnet/intentd/libs/service"
	"github.com/gossipnet/intentd/types"
)

// ErrStopped is returned for attempts that cannot complete because the
// matchmaker is not running.
var ErrStopped = errors.New("matchmaker is not running")

// Matchmaker owns the mempool and runs match attempts one at a time on a
// single worker goroutine, so that two attempts can never claim the same
// intent. Crafted transactions are sent on a bounded channel; a full
// channel blocks the worker rather than dropping a completed match.
type Matchmaker struct {
	service.BaseService

	logger  log.Logger
	metrics *Metrics
	now     func() time.Time

	rules          *Rules
	policy         Policy
	maxLength      int
	purgeInterval  time.Duration
	mempool        *mempool.Mempool
	mempoolOptions []mempool.Option

	// intents included in emitted transactions, until they expire
	consumed *consumedSet

	requests chan *request
	txs      chan *types.Tx
	done     chan struct{}
}

type request struct {
	intent *types.Intent
	result chan response
}

type response struct {
	outcome Outcome
	err     error
}

// Option sets an optional parameter on the Matchmaker.
type Option func(*Matchmaker)

// WithPolicy replaces the builtin policy of the rule set.
func WithPolicy(p Policy) Option {
	return func(mm *Matchmaker) { mm.policy = p }
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(mm *Matchmaker) { mm.metrics = metrics }
}

// WithMempoolOptions passes options to the owned mempool.
func WithMempoolOptions(options ...mempool.Option) Option {
	return func(mm *Matchmaker) { mm.mempoolOptions = append(mm.mempoolOptions, options...) }
}

// WithClock sets the clock used for transaction timestamps, expiry sweeps
// and the mempool.
func WithClock(now func() time.Time) Option {
	return func(mm *Matchmaker) { mm.now = now }
}

// New returns a Matchmaker applying rules under the limits of cfg.
func New(logger log.Logger, cfg *config.MatchmakerConfig, rules *Rules, options ...Option) (*Matchmaker, error) {
	mm := &Matchmaker{
		logger:        logger,
		metrics:       NopMetrics(),
		now:           time.Now,
		rules:         rules,
		purgeInterval: cfg.PurgeInterval,
		requests:      make(chan *request, cfg.QueueSize),
		txs:           make(chan *types.Tx, cfg.TxBufferSize),
		consumed:      newConsumedSet(),
		done:          make(chan struct{}),
	}
	for _, opt := range options {
		opt(mm)
	}
	if mm.policy == nil {
		mm.policy = NewPolicy(rules)
	}

	mm.maxLength = mm.policy.MaxCycleLength()
	if cfg.MaxCycleLength > 0 && cfg.MaxCycleLength < mm.maxLength {
		mm.maxLength = cfg.MaxCycleLength
	}
	if mm.maxLength < 2 {
		return nil, fmt.Errorf("policy %s: max cycle length must be at least 2, got %d", mm.policy.Name(), mm.maxLength)
	}
	if rules.MaxSearchSteps <= 0 {
		return nil, fmt.Errorf("max search steps must be positive, got %d", rules.MaxSearchSteps)
	}

	mpOptions := append([]mempool.Option{mempool.WithClock(mm.now)}, mm.mempoolOptions...)
	mm.mempool = mempool.New(logger.With("module", "mempool"), cfg.MempoolCapacity, mpOptions...)

	mm.BaseService = *service.NewBaseService(logger, "Matchmaker", mm)
	return mm, nil
}

// Txs returns the channel crafted transactions are sent on. It is closed
// when the matchmaker stops.
func (mm *Matchmaker) Txs() <-chan *types.Tx { return mm.txs }

// Mempool returns the owned mempool. Callers must treat it as read only.
func (mm *Matchmaker) Mempool() *mempool.Mempool { return mm.mempool }

// Rules returns the active rule set.
func (mm *Matchmaker) Rules() *Rules { return mm.rules }

// Policy returns the active policy.
func (mm *Matchmaker) Policy() Policy { return mm.policy }

// OnStart implements service.Service by starting the worker.
func (mm *Matchmaker) OnStart(ctx context.Context) error {
	go mm.run(ctx)
	return nil
}

// OnStop implements service.Service and waits for the worker to exit. An
// attempt blocked on emission is aborted without losing state.
func (mm *Matchmaker) OnStop() {
	<-mm.done
}

// TryMatchIntent queues an attempt for in and waits for its outcome. The
// attempt completes even if ctx is canceled while it runs.
//
// An error next to a NoMatch outcome is a rule evaluation fault; the intent
// was inserted as if no match had been found.
func (mm *Matchmaker) TryMatchIntent(ctx context.Context, in *types.Intent) (Outcome, error) {
	if !mm.IsRunning() {
		return nil, ErrStopped
	}

	req := &request{intent: in, result: make(chan response, 1)}
	select {
	case mm.requests <- req:
	case <-mm.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.result:
		return res.outcome, res.err
	case <-mm.done:
		// the worker may have answered right before exiting
		select {
		case res := <-req.result:
			return res.outcome, res.err
		default:
			return nil, ErrStopped
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (mm *Matchmaker) run(ctx context.Context) {
	defer close(mm.done)
	defer close(mm.txs)

	var purge <-chan time.Time
	if mm.purgeInterval > 0 {
		ticker := time.NewTicker(mm.purgeInterval)
		defer ticker.Stop()
		purge = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-mm.Quit():
			return
		case req := <-mm.requests:
			outcome, err := mm.attempt(ctx, req.intent)
			req.result <- response{outcome: outcome, err: err}
			if errors.Is(err, ErrStopped) {
				return
			}
		case <-purge:
			mm.purge()
		}
	}
}

// purge drops expired pending intents and forgets expired consumed ones.
// It must only be called by the worker.
func (mm *Matchmaker) purge() {
	now := mm.now()
	mm.mempool.PurgeExpired(now)
	if n := mm.consumed.prune(now); n > 0 {
		mm.logger.Debug("forgot expired consumed intents", "num", n, "remaining", mm.consumed.len())
	}
	mm.metrics.ConsumedIntents.Set(float64(mm.consumed.len()))
}

// attempt runs one match attempt. It must only be called by the worker.
func (mm *Matchmaker) attempt(ctx context.Context, in *types.Intent) (outcome Outcome, err error) {
	fp := in.Fingerprint()
	logger := mm.logger.With("fingerprint", fp)
	defer func() {
		if outcome != nil {
			mm.metrics.Attempts.With("outcome", outcome.Label()).Add(1)
		}
	}()

	if mm.consumed.has(fp) {
		logger.Debug("intent already consumed")
		return NoMatch{Consumed: true}, nil
	}
	if mm.mempool.Has(fp) {
		return NoMatch{Duplicate: true}, nil
	}
	if in.IsExpired(mm.now()) {
		return NoMatch{Expired: true}, nil
	}

	s := &searcher{
		policy:          mm.policy,
		mempool:         mm.mempool,
		maxLength:       mm.maxLength,
		maxSteps:        mm.rules.MaxSearchSteps,
		distinctHolders: mm.rules.DistinctHolders,
	}
	best, err := s.search(in)
	mm.metrics.SearchSteps.Observe(float64(s.steps))
	if err != nil {
		mm.metrics.RuleFaults.Add(1)
		logger.Error("matching rule fault; keeping intent unmatched", "err", err)
		return NoMatch{Inserted: mm.mempool.Insert(in)}, err
	}
	if best == nil {
		if s.exhausted() {
			logger.Debug("search budget exhausted", "steps", s.steps)
		}
		return NoMatch{Inserted: mm.mempool.Insert(in)}, nil
	}

	return mm.emit(ctx, logger, in, best)
}

// emit reserves the members of c, sends the transaction realizing it and
// then removes the members. If the send is aborted by shutdown the
// reservation is released and in is inserted, leaving the mempool as if no
// match had been found.
func (mm *Matchmaker) emit(ctx context.Context, logger log.Logger, in *types.Intent, c *cycle) (Outcome, error) {
	members := c.fingerprints()
	set := c.matchSet(in)

	tx, err := types.NewTx(set, mm.now())
	if err != nil {
		// the policy linked intents that do not form an exact cycle
		mm.metrics.RuleFaults.Add(1)
		err = RuleError{Policy: mm.policy.Name(), Err: err}
		logger.Error("matching rule fault; keeping intent unmatched", "err", err)
		return NoMatch{Inserted: mm.mempool.Insert(in)}, err
	}

	if !mm.mempool.Reserve(members) {
		logger.Error("could not reserve match members", "members", len(members))
		return NoMatch{Inserted: mm.mempool.Insert(in)}, nil
	}

	start := time.Now()
	select {
	case mm.txs <- tx:
	case <-mm.Quit():
		return mm.abortEmit(logger, in, members)
	case <-ctx.Done():
		return mm.abortEmit(logger, in, members)
	}
	mm.metrics.EmitBlockedSeconds.Observe(time.Since(start).Seconds())

	if !mm.mempool.Remove(members) {
		// unreachable while the worker is the only writer
		panic(fmt.Sprintf("emitted tx %v but its members left the mempool", tx.Hash()))
	}
	for _, member := range set {
		mm.consumed.add(member)
	}
	mm.metrics.ConsumedIntents.Set(float64(mm.consumed.len()))

	mm.metrics.MatchedIntents.Add(float64(len(set)))
	mm.metrics.CycleLength.Observe(float64(len(set)))
	logger.Info("matched intents", "tx", tx.Hash(), "intents", len(set))

	return Matched{Set: set, Tx: tx}, nil
}

func (mm *Matchmaker) abortEmit(logger log.Logger, in *types.Intent, members []types.Fingerprint) (Outcome, error) {
	mm.mempool.Release(members)
	inserted := mm.mempool.Insert(in)
	logger.Info("matchmaker stopping; dropped pending match", "inserted", inserted)
	return NoMatch{Inserted: inserted}, ErrStopped
}
