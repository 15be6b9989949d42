// Package service implements bid submission and lookup. Bid resolution
// (winner / not selected) is written exclusively by internal/award.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
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

// AmountPolicy selects how bid amounts are validated against the tender
// budget. The engine's source material disagrees on the cap, so it is
// configuration rather than a hardcoded rule.
type AmountPolicy string

const (
	// AmountCappedAtBudget rejects bids above the tender budget. Default.
	AmountCappedAtBudget AmountPolicy = "capped_at_budget"
	// AmountUncapped accepts any positive amount.
	AmountUncapped AmountPolicy = "uncapped"
)

// DuplicatePolicy selects how a second bid by the same bidder is handled.
// Either way the original bid is never overwritten.
type DuplicatePolicy string

const (
	// DuplicateReject fails the second submission with a conflict. Default.
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateRejectSilently returns the existing bid without an error and
	// without consuming an id or appending an event.
	DuplicateRejectSilently DuplicatePolicy = "reject_silently"
)

// BidStore is the persistence port for bids.
type BidStore interface {
	Insert(ctx context.Context, b *bidmodels.Bid) error
	FindByID(ctx context.Context, tenderID domain.TenderID, id domain.BidID) (*bidmodels.Bid, error)
	FindByBidder(ctx context.Context, tenderID domain.TenderID, bidder domain.ActorID) (*bidmodels.Bid, error)
	Update(ctx context.Context, b *bidmodels.Bid) error
	ListByTender(ctx context.Context, tenderID domain.TenderID) ([]*bidmodels.Bid, error)
	LastID(ctx context.Context, tenderID domain.TenderID) (domain.BidID, error)
}

// TenderReader looks up tenders; bids hold a non-owning reference to their
// tender and never mutate it.
type TenderReader interface {
	FindByID(ctx context.Context, id domain.TenderID) (*tendermodels.Tender, error)
}

// Authorizer checks actor roles against the identity registry.
type Authorizer interface {
	Authorize(ctx context.Context, id domain.ActorID, roles ...domain.Role) error
}

// Ledger is the commit point for bid mutations.
type Ledger interface {
	Append(ctx context.Context, events ...ledger.Event) ([]ledger.Event, error)
}

// Service orchestrates bid submission.
type Service struct {
	bids       BidStore
	tenders    TenderReader
	authorizer Authorizer
	ledger     Ledger
	locks      *locks.Keyed
	amounts    AmountPolicy
	duplicates DuplicatePolicy
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

// WithAmountPolicy overrides the default capped_at_budget policy.
func WithAmountPolicy(p AmountPolicy) Option {
	return func(s *Service) { s.amounts = p }
}

// WithDuplicatePolicy overrides the default reject policy.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(s *Service) { s.duplicates = p }
}

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// New constructs a Service. The keyed lock set must be shared with the tender
// and award services.
func New(bids BidStore, tenders TenderReader, authorizer Authorizer, log Ledger, keyed *locks.Keyed, opts ...Option) *Service {
	s := &Service{
		bids:       bids,
		tenders:    tenders,
		authorizer: authorizer,
		ledger:     log,
		locks:      keyed,
		amounts:    AmountCappedAtBudget,
		duplicates: DuplicateReject,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Place submits a bid against an open tender. Preconditions are checked in
// order: tender exists, tender open, deadline not passed, bidder authorized,
// amount valid under policy, no duplicate bid. The first failure wins and no
// bid id is consumed on any failure path.
func (s *Service) Place(ctx context.Context, tenderID domain.TenderID, bidder domain.ActorID, amount int64, proposal string) (*bidmodels.Bid, error) {
	unlock := s.locks.Lock(tenderID)
	defer unlock()

	t, err := s.tenders.FindByID(ctx, tenderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tender not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tender")
	}
	if !t.IsOpen() {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "tender is %s and not accepting bids", t.Status)
	}

	now := s.clock().UTC()
	if !now.Before(t.Deadline) {
		return nil, dErrors.New(dErrors.CodeValidation, "tender deadline has passed")
	}

	if err := s.authorizer.Authorize(ctx, bidder, domain.RoleBidder); err != nil {
		return nil, err
	}

	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "bid amount must be positive")
	}
	if s.amounts == AmountCappedAtBudget && amount > t.Budget {
		return nil, dErrors.New(dErrors.CodeValidation, "bid amount exceeds tender budget")
	}

	if existing, err := s.bids.FindByBidder(ctx, tenderID, bidder); err == nil {
		if s.duplicates == DuplicateRejectSilently {
			return existing, nil
		}
		return nil, dErrors.New(dErrors.CodeConflict, "bidder already has a bid on this tender")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing bid")
	}

	last, err := s.bids.LastID(ctx, tenderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate bid id")
	}

	b, err := bidmodels.NewBid(last+1, tenderID, bidder, amount, strings.TrimSpace(proposal), now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	event, err := ledger.New(ledger.EventBidPlaced, tenderID, bidder, ledger.BidPlacedPayload{
		TenderID:    b.TenderID,
		ID:          b.ID,
		Bidder:      b.Bidder,
		Amount:      b.Amount,
		Proposal:    b.Proposal,
		SubmittedAt: b.SubmittedAt,
	}, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build event")
	}
	if _, err := s.ledger.Append(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit bid")
	}
	if err := s.bids.Insert(ctx, b); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store bid")
	}

	s.logEvent(ctx, "bid_placed", "tender_id", tenderID, "bid_id", b.ID, "bidder", bidder, "amount", amount)
	if s.metrics != nil {
		s.metrics.BidsPlaced.Inc()
	}
	return b, nil
}

// Get returns a bid by tender and bid id.
func (s *Service) Get(ctx context.Context, tenderID domain.TenderID, id domain.BidID) (*bidmodels.Bid, error) {
	unlock := s.locks.RLock(tenderID)
	defer unlock()

	b, err := s.bids.FindByID(ctx, tenderID, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "bid not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load bid")
	}
	return b, nil
}

// List returns the tender's bids in submission order.
func (s *Service) List(ctx context.Context, tenderID domain.TenderID) ([]*bidmodels.Bid, error) {
	unlock := s.locks.RLock(tenderID)
	defer unlock()

	bids, err := s.bids.ListByTender(ctx, tenderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list bids")
	}
	return bids, nil
}

func (s *Service) logEvent(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
