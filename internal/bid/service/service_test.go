package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	bidmodels "tenderledger/internal/bid/models"
	bidstore "tenderledger/internal/bid/store/bid"
	identityservice "tenderledger/internal/identity/service"
	actorstore "tenderledger/internal/identity/store/actor"
	ledgermemory "tenderledger/internal/ledger/store/memory"
	tenderservice "tenderledger/internal/tender/service"
	tenderstore "tenderledger/internal/tender/store/tender"
	"tenderledger/pkg/domain"
	dErrors "tenderledger/pkg/domain-errors"
	"tenderledger/pkg/platform/locks"
)

type BidServiceSuite struct {
	suite.Suite
	bids     *bidstore.InMemory
	tenders  *tenderstore.InMemory
	log      *ledgermemory.Store
	identity *identityservice.Service
	service  *Service
	now      time.Time
	tender   domain.TenderID
}

func TestBidServiceSuite(t *testing.T) {
	suite.Run(t, new(BidServiceSuite))
}

func (s *BidServiceSuite) SetupTest() {
	s.bids = bidstore.NewInMemory()
	s.tenders = tenderstore.NewInMemory()
	s.log = ledgermemory.New()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	clock := func() time.Time { return s.now }
	keyed := locks.NewKeyed()
	s.identity = identityservice.New(actorstore.NewInMemory(), s.log, identityservice.WithClock(clock))
	s.service = New(s.bids, s.tenders, s.identity, s.log, keyed, WithClock(clock))

	ctx := context.Background()
	for _, a := range []struct {
		id   domain.ActorID
		role domain.Role
	}{
		{"admin", domain.RoleAdmin},
		{"officer", domain.RoleOfficer},
		{"bidder1", domain.RoleBidder},
		{"bidder2", domain.RoleBidder},
	} {
		_, err := s.identity.Register(ctx, a.id, a.role, string(a.id))
		s.Require().NoError(err)
	}

	tenderSvc := tenderservice.New(s.tenders, s.identity, s.log, keyed, tenderservice.WithClock(clock))
	t, err := tenderSvc.Create(ctx, "officer", tenderservice.CreateRequest{
		Title:       "Bridge inspection",
		Description: "Annual inspection of the north bridge",
		Budget:      100_000,
		Deadline:    s.now.Add(48 * time.Hour),
	})
	s.Require().NoError(err)
	s.tender = t.ID
}

// =============================================================================
// Place - happy path
// =============================================================================

func (s *BidServiceSuite) TestPlace() {
	ctx := context.Background()

	s.Run("bidder places a bid with sequential per-tender ids", func() {
		b1, err := s.service.Place(ctx, s.tender, "bidder1", 90_000, "we can do it")
		s.Require().NoError(err)
		s.Equal(domain.BidID(1), b1.ID)
		s.Equal(bidmodels.StatusSubmitted, b1.Status)

		b2, err := s.service.Place(ctx, s.tender, "bidder2", 80_000, "cheaper")
		s.Require().NoError(err)
		s.Equal(domain.BidID(2), b2.ID)
	})

	s.Run("bids are listed in submission order", func() {
		bids, err := s.service.List(ctx, s.tender)
		s.Require().NoError(err)
		s.Require().Len(bids, 2)
		s.Equal(domain.BidID(1), bids[0].ID)
		s.Equal(domain.BidID(2), bids[1].ID)
	})
}

// =============================================================================
// Place - ordered failure modes
// =============================================================================
// Preconditions fail in a fixed order: existence, state, deadline,
// authorization, amount, duplicate. No failure consumes a bid id.

func (s *BidServiceSuite) TestPlaceFailures() {
	ctx := context.Background()

	s.Run("unknown tender is not found", func() {
		_, err := s.service.Place(ctx, 999, "bidder1", 1_000, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("past the deadline is a validation error", func() {
		saved := s.now
		s.now = s.now.Add(72 * time.Hour)
		_, err := s.service.Place(ctx, s.tender, "bidder1", 1_000, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.now = saved
	})

	s.Run("officer cannot bid", func() {
		_, err := s.service.Place(ctx, s.tender, "officer", 1_000, "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("deactivated bidder cannot bid", func() {
		s.Require().NoError(s.identity.SetActive(ctx, "admin", "bidder2", false))
		_, err := s.service.Place(ctx, s.tender, "bidder2", 1_000, "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Require().NoError(s.identity.SetActive(ctx, "admin", "bidder2", true))
	})

	s.Run("zero amount is a validation error", func() {
		_, err := s.service.Place(ctx, s.tender, "bidder1", 0, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("amount above budget is rejected under the default policy", func() {
		_, err := s.service.Place(ctx, s.tender, "bidder1", 100_001, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate bid conflicts under the default policy", func() {
		_, err := s.service.Place(ctx, s.tender, "bidder1", 90_000, "first")
		s.Require().NoError(err)

		_, err = s.service.Place(ctx, s.tender, "bidder1", 85_000, "second")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("failures never consume a bid id", func() {
		b, err := s.service.Place(ctx, s.tender, "bidder2", 70_000, "")
		s.Require().NoError(err)
		s.Equal(domain.BidID(2), b.ID)
	})

	s.Run("cancelled tender stops accepting bids with invalid state", func() {
		t, err := s.tenders.FindByID(ctx, s.tender)
		s.Require().NoError(err)
		t.ApplyCancel()
		s.Require().NoError(s.tenders.Update(ctx, t))

		_, err = s.service.Place(ctx, s.tender, "bidder2", 1_000, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

// =============================================================================
// Policies
// =============================================================================

func (s *BidServiceSuite) TestPolicies() {
	ctx := context.Background()
	clock := func() time.Time { return s.now }

	s.Run("uncapped policy accepts bids above budget", func() {
		svc := New(s.bids, s.tenders, s.identity, s.log, locks.NewKeyed(),
			WithClock(clock), WithAmountPolicy(AmountUncapped))

		b, err := svc.Place(ctx, s.tender, "bidder1", 150_000, "premium option")
		s.Require().NoError(err)
		s.Equal(int64(150_000), b.Amount)
	})

	s.Run("silent duplicate policy returns the original bid unchanged", func() {
		svc := New(s.bids, s.tenders, s.identity, s.log, locks.NewKeyed(),
			WithClock(clock), WithDuplicatePolicy(DuplicateRejectSilently))

		before, err := s.log.LastSeq(ctx)
		s.Require().NoError(err)

		b, err := svc.Place(ctx, s.tender, "bidder1", 60_000, "replacement attempt")
		s.Require().NoError(err)
		s.Equal(int64(150_000), b.Amount)
		s.Equal(domain.BidID(1), b.ID)

		// No event was appended and no id consumed.
		after, err := s.log.LastSeq(ctx)
		s.Require().NoError(err)
		s.Equal(before, after)
	})
}
