// Package relay tails the committed event log and publishes entries to an
// external broker for notification and UI consumption. It runs strictly
// after commit and never under a tender lock; the log itself is the replay
// source, so a crashed relay resumes from its checkpoint without loss.
package relay

import (
	"context"
	"log/slog"
	"time"

	"tenderledger/internal/ledger"
	"tenderledger/internal/platform/metrics"
)

// DefaultPollInterval is how often the relay checks for new events once it
// has caught up with the log.
const DefaultPollInterval = 500 * time.Millisecond

// Publisher delivers one committed event to the outside world.
type Publisher interface {
	Publish(ctx context.Context, e ledger.Event) error
}

// Checkpoints persists the sequence number of the last published event so
// the relay resumes where it stopped.
type Checkpoints interface {
	Load(ctx context.Context) (uint64, error)
	Save(ctx context.Context, seq uint64) error
}

// Relay is the background worker.
type Relay struct {
	store    ledger.Store
	pub      Publisher
	cps      Checkpoints
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(r *Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

// WithPollInterval overrides the catch-up poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

func New(store ledger.Store, pub Publisher, cps Checkpoints, opts ...Option) *Relay {
	r := &Relay{
		store:    store,
		pub:      pub,
		cps:      cps,
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run publishes events until the context is cancelled. Publishing is
// at-least-once: the checkpoint is saved after each event, so a crash
// between publish and save re-delivers that one event on restart.
func (r *Relay) Run(ctx context.Context) error {
	from, err := r.cps.Load(ctx)
	if err != nil {
		return err
	}
	cur := ledger.NewCursor(r.store, from)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		published, err := r.drain(ctx, cur)
		if err != nil {
			return err
		}
		if published > 0 {
			continue // keep draining while there is backlog
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Relay) drain(ctx context.Context, cur *ledger.Cursor) (int, error) {
	batch, err := cur.Next(ctx)
	if err != nil {
		return 0, err
	}
	for _, e := range batch {
		if err := r.pub.Publish(ctx, e); err != nil {
			return 0, err
		}
		if err := r.cps.Save(ctx, e.Seq); err != nil {
			return 0, err
		}
		if r.metrics != nil {
			r.metrics.RelayPublished.Inc()
		}
		if r.logger != nil {
			r.logger.DebugContext(ctx, "event published",
				"seq", e.Seq,
				"type", e.Type,
				"tender_id", e.TenderID,
			)
		}
	}
	return len(batch), nil
}
