// Package service implements the award engine: the single authority allowed
// to close a tender and resolve its bids. It owns no data; it orchestrates an
// atomic cross-store commit under the tender's exclusive lock.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	bidmodels "tenderledger/internal/bid/models"
	"tenderledger/internal/ledger"
	"tenderledger/internal/platform/metrics"
	tendermodels "tenderledger/internal/tender/models"
	"tenderledger/pkg/domain"
	dErrors "tenderledger/pkg/domain-errors"
	"tenderledger/pkg/platform/locks"
	"tenderledger/pkg/platform/sentinel"
)

// TenderStore is the tender persistence port the engine commits through.
type TenderStore interface {
	FindByID(ctx context.Context, id domain.TenderID) (*tendermodels.Tender, error)
	Update(ctx context.Context, t *tendermodels.Tender) error
}

// BidStore is the bid persistence port the engine commits through. Only this
// engine writes winner / not-selected statuses.
type BidStore interface {
	FindByID(ctx context.Context, tenderID domain.TenderID, id domain.BidID) (*bidmodels.Bid, error)
	ListByTender(ctx context.Context, tenderID domain.TenderID) ([]*bidmodels.Bid, error)
	Update(ctx context.Context, b *bidmodels.Bid) error
}

// Authorizer checks actor roles against the identity registry.
type Authorizer interface {
	Authorize(ctx context.Context, id domain.ActorID, roles ...domain.Role) error
}

// Ledger is the commit point for the close-and-award batch.
type Ledger interface {
	Append(ctx context.Context, events ...ledger.Event) ([]ledger.Event, error)
}

// Service is the award engine.
type Service struct {
	tenders    TenderStore
	bids       BidStore
	authorizer Authorizer
	ledger     Ledger
	locks      *locks.Keyed
	logger     *slog.Logger
	metrics    *metrics.Metrics
	clock      func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// New constructs the award engine. The keyed lock set must be shared with the
// tender and bid services.
func New(tenders TenderStore, bids BidStore, authorizer Authorizer, log Ledger, keyed *locks.Keyed, opts ...Option) *Service {
	s := &Service{
		tenders:    tenders,
		bids:       bids,
		authorizer: authorizer,
		ledger:     log,
		locks:      keyed,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close awards the tender to the named winning bid and terminates it in a
// single commit. Preconditions, checked in order with no partial effects:
//
//  1. the tender exists
//  2. the tender is open (already-awarded and cancelled both fail here; a
//     racing second closer loses here after the winner's commit)
//  3. the caller is the creator or an active admin
//  4. the winning bid exists under this tender and is still submitted
//
// The effect is atomic under the tender's exclusive lock: the tender becomes
// awarded with its winner recorded, the winning bid becomes winner, every
// other submitted bid becomes not selected, and the ledger receives one
// TenderClosed event followed by one BidStatusUpdated event per changed bid
// in ascending bid-id order.
//
// The engine never picks a winner itself. Ranking bids is the caller's
// concern, layered on List; the deadline does not gate closing.
func (s *Service) Close(ctx context.Context, tenderID domain.TenderID, winningBidID domain.BidID, by domain.ActorID) error {
	start := time.Now()
	unlock := s.locks.Lock(tenderID)
	defer unlock()

	t, err := s.tenders.FindByID(ctx, tenderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "tender not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tender")
	}
	if err := t.CanAward(); err != nil {
		return err
	}
	if err := s.authorizeCloser(ctx, t, by); err != nil {
		return err
	}

	winning, err := s.bids.FindByID(ctx, tenderID, winningBidID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeValidation, "winning bid does not exist on this tender")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load winning bid")
	}
	if !winning.IsSubmitted() {
		return dErrors.Newf(dErrors.CodeValidation, "winning bid is already %s", winning.Status)
	}

	bids, err := s.bids.ListByTender(ctx, tenderID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list bids")
	}

	now := s.clock().UTC()

	// One TenderClosed, then one BidStatusUpdated per changed bid in
	// ascending bid-id order. Tests and downstream consumers depend on this
	// exact sequence.
	events := make([]ledger.Event, 0, len(bids)+1)
	closed, err := ledger.New(ledger.EventTenderClosed, tenderID, by, ledger.TenderClosedPayload{
		ID:         tenderID,
		WinningBid: winningBidID,
		Winner:     winning.Bidder,
	}, now)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build event")
	}
	events = append(events, closed)

	resolutions := make(map[domain.BidID]bidmodels.BidStatus, len(bids))
	for _, b := range bids {
		if !b.IsSubmitted() {
			continue
		}
		status := bidmodels.StatusNotSelected
		if b.ID == winningBidID {
			status = bidmodels.StatusWinner
		}
		resolutions[b.ID] = status

		updated, err := ledger.New(ledger.EventBidStatusUpdated, tenderID, by, ledger.BidStatusUpdatedPayload{
			TenderID: tenderID,
			ID:       b.ID,
			Status:   string(status),
		}, now)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build event")
		}
		events = append(events, updated)
	}

	if _, err := s.ledger.Append(ctx, events...); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit award")
	}

	// The ledger batch is committed; the table writes below cannot fail for
	// entities we just loaded under the lock.
	t.ApplyAward(winningBidID, winning.Bidder)
	if err := s.tenders.Update(ctx, t); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store tender")
	}
	for _, b := range bids {
		status, ok := resolutions[b.ID]
		if !ok {
			continue
		}
		b.ApplyResolution(status)
		if err := s.bids.Update(ctx, b); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store bid")
		}
	}

	s.logEvent(ctx, "tender_closed",
		"tender_id", tenderID,
		"winning_bid", winningBidID,
		"winner", winning.Bidder,
		"by", by,
	)
	if s.metrics != nil {
		s.metrics.TendersAwarded.Inc()
		s.metrics.CloseDuration.Observe(time.Since(start).Seconds())
	}
	return nil
}

// Snapshot returns the tender together with its bids under one shared lock,
// so a reader can never observe an awarded tender whose bids are still
// submitted, or the reverse.
func (s *Service) Snapshot(ctx context.Context, tenderID domain.TenderID) (*tendermodels.Tender, []*bidmodels.Bid, error) {
	unlock := s.locks.RLock(tenderID)
	defer unlock()

	t, err := s.tenders.FindByID(ctx, tenderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "tender not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tender")
	}
	bids, err := s.bids.ListByTender(ctx, tenderID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list bids")
	}
	return t, bids, nil
}

// authorizeCloser permits the original creator, or any active admin.
func (s *Service) authorizeCloser(ctx context.Context, t *tendermodels.Tender, by domain.ActorID) error {
	if by == t.Creator {
		return nil
	}
	if err := s.authorizer.Authorize(ctx, by, domain.RoleAdmin); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "only the creator or an admin may close this tender")
	}
	return nil
}

func (s *Service) logEvent(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
