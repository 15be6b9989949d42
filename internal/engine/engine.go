// Package engine assembles the tender ledger engine: identity registry,
// tender and bid stores, award engine and event log, sharing one set of
// per-tender locks so every mutation of a tender serializes.
package engine

import (
	"context"
	"log/slog"

	awardservice "tenderledger/internal/award/service"
	bidservice "tenderledger/internal/bid/service"
	bidstore "tenderledger/internal/bid/store/bid"
	identityservice "tenderledger/internal/identity/service"
	actorstore "tenderledger/internal/identity/store/actor"
	"tenderledger/internal/ledger"
	"tenderledger/internal/ledger/replay"
	"tenderledger/internal/platform/metrics"
	tenderservice "tenderledger/internal/tender/service"
	tenderstore "tenderledger/internal/tender/store/tender"
	dErrors "tenderledger/pkg/domain-errors"
	"tenderledger/pkg/platform/locks"
)

// Engine is the assembled core. The ledger store is supplied by the caller
// (memory or postgres); actor, tender and bid tables live in memory and are
// rebuilt from the log on construction.
type Engine struct {
	Identity *identityservice.Service
	Tenders  *tenderservice.Service
	Bids     *bidservice.Service
	Awards   *awardservice.Service
	Ledger   ledger.Store
}

type Option func(o *options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New validates cfg, replays any existing log into fresh tables, and wires
// the services. A non-empty log from a previous run is fully restored before
// the engine accepts calls.
func New(ctx context.Context, cfg Config, log ledger.Store, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	actors := actorstore.NewInMemory()
	tenders := tenderstore.NewInMemory()
	bids := bidstore.NewInMemory()

	if err := replay.Rebuild(ctx, log, actors, tenders, bids); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to replay event log")
	}

	keyed := locks.NewKeyed()

	var identityOpts []identityservice.Option
	var tenderOpts []tenderservice.Option
	var bidOpts []bidservice.Option
	var awardOpts []awardservice.Option
	if o.logger != nil {
		identityOpts = append(identityOpts, identityservice.WithLogger(o.logger))
		tenderOpts = append(tenderOpts, tenderservice.WithLogger(o.logger))
		bidOpts = append(bidOpts, bidservice.WithLogger(o.logger))
		awardOpts = append(awardOpts, awardservice.WithLogger(o.logger))
	}
	if o.metrics != nil {
		identityOpts = append(identityOpts, identityservice.WithMetrics(o.metrics))
		tenderOpts = append(tenderOpts, tenderservice.WithMetrics(o.metrics))
		bidOpts = append(bidOpts, bidservice.WithMetrics(o.metrics))
		awardOpts = append(awardOpts, awardservice.WithMetrics(o.metrics))
	}
	if cfg.AllowDraftState {
		tenderOpts = append(tenderOpts, tenderservice.WithDraftState())
	}
	bidOpts = append(bidOpts,
		bidservice.WithAmountPolicy(cfg.BidAmountPolicy),
		bidservice.WithDuplicatePolicy(cfg.DuplicateBidPolicy),
	)

	identity := identityservice.New(actors, log, identityOpts...)

	return &Engine{
		Identity: identity,
		Tenders:  tenderservice.New(tenders, identity, log, keyed, tenderOpts...),
		Bids:     bidservice.New(bids, tenders, identity, log, keyed, bidOpts...),
		Awards:   awardservice.New(tenders, bids, identity, log, keyed, awardOpts...),
		Ledger:   log,
	}, nil
}
