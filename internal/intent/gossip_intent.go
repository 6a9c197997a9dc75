package intent

import (
	"context"
	"errors"
	"time"

	"github.com/gossipnet/intentd/config"
	"github.com/gossipnet/intentd/internal/intent/filter"
	"github.com/gossipnet/intentd/internal/intent/matchmaker"
	"github.com/gossipnet/intentd/internal/intent/mempool"
	"github.com/gossipnet/intentd/libs/log"
	"github.com/gossipnet/intentd/libs/service"
	"github.com/gossipnet/intentd/types"
)

// GossipIntent ingests intents received over gossip. With matching
// enabled it runs every decoded intent through the admission filter and
// hands admitted ones to the matchmaker; otherwise the node only relays.
type GossipIntent struct {
	service.BaseService

	logger  log.Logger
	cfg     *config.GossipConfig
	metrics *Metrics

	// nil in relay mode
	filter     *filter.Filter
	matchmaker *matchmaker.Matchmaker

	filterOptions     []filter.Option
	matchmakerOptions []matchmaker.Option
}

// Option sets an optional parameter on the GossipIntent.
type Option func(*GossipIntent)

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(gi *GossipIntent) { gi.metrics = metrics }
}

// WithMatchmakerOptions passes options to the matchmaker.
func WithMatchmakerOptions(options ...matchmaker.Option) Option {
	return func(gi *GossipIntent) { gi.matchmakerOptions = append(gi.matchmakerOptions, options...) }
}

// WithClock sets the clock of the admission filter and the matchmaker.
func WithClock(now func() time.Time) Option {
	return func(gi *GossipIntent) {
		gi.filterOptions = append(gi.filterOptions, filter.WithClock(now))
		gi.matchmakerOptions = append(gi.matchmakerOptions, matchmaker.WithClock(now))
	}
}

// NewGossipIntent returns the ingestion core for cfg and the channel
// crafted transactions are emitted on. The channel is nil in relay mode,
// which is selected when cfg has no enabled matchmaker section.
func NewGossipIntent(
	logger log.Logger,
	cfg *config.GossipConfig,
	options ...Option,
) (*GossipIntent, <-chan *types.Tx, error) {
	gi := &GossipIntent{
		logger:  logger,
		cfg:     cfg,
		metrics: NopMetrics(),
	}
	for _, opt := range options {
		opt(gi)
	}
	gi.BaseService = *service.NewBaseService(logger, "GossipIntent", gi)

	if !cfg.MatchingEnabled() {
		logger.Info("matching disabled; relaying intents only")
		return gi, nil, nil
	}

	mmcfg := cfg.Matchmaker
	if err := mmcfg.ValidateBasic(); err != nil {
		return nil, nil, ErrMatchmakerInit{Reason: err}
	}
	rules, err := matchmaker.LoadRules(mmcfg.RuleSource, mmcfg.RootDir)
	if err != nil {
		return nil, nil, ErrMatchmakerInit{Reason: err}
	}

	mm, err := matchmaker.New(logger.With("module", "matchmaker"), mmcfg, rules, gi.matchmakerOptions...)
	if err != nil {
		return nil, nil, ErrMatchmakerInit{Reason: err}
	}

	filterOptions := append([]filter.Option{
		filter.WithMaxLifetime(mmcfg.MaxIntentLifetime),
		filter.WithSignatureCache(mmcfg.SignatureCacheSize),
	}, gi.filterOptions...)
	gi.filter = filter.New(rules.Assets, filterOptions...)
	gi.matchmaker = mm
	logger.Info("matching enabled",
		"rules", rules.Source,
		"policy", mm.Policy().Name(),
		"max_cycle_length", mm.Policy().MaxCycleLength(),
		"mempool_capacity", mmcfg.MempoolCapacity,
		"max_intent_lifetime", mmcfg.MaxIntentLifetime,
	)
	return gi, mm.Txs(), nil
}

// OnStart implements service.Service by starting the matchmaker, if any.
func (gi *GossipIntent) OnStart(ctx context.Context) error {
	if gi.matchmaker == nil {
		return nil
	}
	return gi.matchmaker.Start(ctx)
}

// OnStop implements service.Service by stopping the matchmaker, if any.
func (gi *GossipIntent) OnStop() {
	if gi.matchmaker == nil {
		return
	}
	if err := gi.matchmaker.Stop(); err != nil && !errors.Is(err, service.ErrAlreadyStopped) {
		gi.logger.Error("failed to stop matchmaker", "err", err)
	}
}

// MatchingEnabled reports whether the node runs a matchmaker.
func (gi *GossipIntent) MatchingEnabled() bool { return gi.matchmaker != nil }

// Mempool returns the matchmaker's pending intents, or nil in relay mode.
// It must be treated as read only.
func (gi *GossipIntent) Mempool() *mempool.Mempool {
	if gi.matchmaker == nil {
		return nil
	}
	return gi.matchmaker.Mempool()
}

// ParseRawMsg decodes an IntentBroadcasterMessage from untrusted bytes.
// Every failure, including oversized input and structurally invalid
// intents, is an ErrDecode.
func (gi *GossipIntent) ParseRawMsg(bz []byte) (*types.IntentBroadcasterMessage, error) {
	if len(bz) > gi.cfg.MaxMsgBytes {
		gi.metrics.DecodeErrors.Add(1)
		return nil, ErrDecode{Reason: ErrMsgTooLarge{Max: gi.cfg.MaxMsgBytes, Actual: len(bz)}}
	}

	msg, err := types.BroadcasterMessageFromBytes(bz)
	if err != nil {
		gi.metrics.DecodeErrors.Add(1)
		return nil, ErrDecode{Reason: err}
	}
	if err := msg.ValidateBasic(); err != nil {
		gi.metrics.DecodeErrors.Add(1)
		return nil, ErrDecode{Reason: err}
	}
	return msg, nil
}

// ApplyIntent hands a decoded intent to the matchmaker and reports whether a
// match attempt was made. Crafted transactions are delivered on the channel
// returned by NewGossipIntent.
//
// In relay mode and for intents rejected by the admission filter it returns
// (false, nil). A fault in the matching rules yields (true, ErrMatchmaker);
// the intent is kept as pending.
func (gi *GossipIntent) ApplyIntent(ctx context.Context, in *types.Intent) (bool, error) {
	if gi.matchmaker == nil {
		gi.metrics.Relayed.Add(1)
		return false, nil
	}

	if verdict := gi.filter.Check(in); !verdict.Accepted() {
		gi.metrics.Rejected.With("reason", verdict.Reason.String()).Add(1)
		gi.logger.Debug("rejected intent",
			"fingerprint", in.Fingerprint(),
			"reason", verdict.Reason.String(),
			"detail", verdict.Detail,
		)
		return false, nil
	}
	gi.metrics.Admitted.Add(1)

	outcome, err := gi.matchmaker.TryMatchIntent(ctx, in)
	if err != nil {
		var ruleErr matchmaker.RuleError
		if errors.As(err, &ruleErr) {
			return true, ErrMatchmaker{Reason: err}
		}
		return outcome != nil, err
	}

	gi.logger.Debug("applied intent", "fingerprint", in.Fingerprint(), "outcome", outcome.Label())
	return true, nil
}
