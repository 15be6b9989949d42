package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	bidmodels "tenderledger/internal/bid/models"
	bidservice "tenderledger/internal/bid/service"
	bidstore "tenderledger/internal/bid/store/bid"
	identityservice "tenderledger/internal/identity/service"
	actorstore "tenderledger/internal/identity/store/actor"
	"tenderledger/internal/ledger"
	ledgermemory "tenderledger/internal/ledger/store/memory"
	tendermodels "tenderledger/internal/tender/models"
	tenderservice "tenderledger/internal/tender/service"
	tenderstore "tenderledger/internal/tender/store/tender"
	"tenderledger/pkg/domain"
	dErrors "tenderledger/pkg/domain-errors"
	"tenderledger/pkg/platform/locks"
)

type AwardServiceSuite struct {
	suite.Suite
	bids     *bidstore.InMemory
	tenders  *tenderstore.InMemory
	log      *ledgermemory.Store
	identity *identityservice.Service
	bidSvc   *bidservice.Service
	service  *Service
	now      time.Time
	tender   domain.TenderID
}

func TestAwardServiceSuite(t *testing.T) {
	suite.Run(t, new(AwardServiceSuite))
}

func (s *AwardServiceSuite) SetupTest() {
	s.bids = bidstore.NewInMemory()
	s.tenders = tenderstore.NewInMemory()
	s.log = ledgermemory.New()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	clock := func() time.Time { return s.now }
	keyed := locks.NewKeyed()
	s.identity = identityservice.New(actorstore.NewInMemory(), s.log, identityservice.WithClock(clock))
	s.bidSvc = bidservice.New(s.bids, s.tenders, s.identity, s.log, keyed, bidservice.WithClock(clock))
	s.service = New(s.tenders, s.bids, s.identity, s.log, keyed, WithClock(clock))

	ctx := context.Background()
	for _, a := range []struct {
		id   domain.ActorID
		role domain.Role
	}{
		{"admin", domain.RoleAdmin},
		{"officer", domain.RoleOfficer},
		{"bidder1", domain.RoleBidder},
		{"bidder2", domain.RoleBidder},
		{"bidder3", domain.RoleBidder},
	} {
		_, err := s.identity.Register(ctx, a.id, a.role, string(a.id))
		s.Require().NoError(err)
	}

	tenderSvc := tenderservice.New(s.tenders, s.identity, s.log, keyed, tenderservice.WithClock(clock))
	t, err := tenderSvc.Create(ctx, "officer", tenderservice.CreateRequest{
		Title:       "Fleet maintenance",
		Description: "Two-year maintenance contract for the city fleet",
		Budget:      1_000_000,
		Deadline:    s.now.Add(48 * time.Hour),
	})
	s.Require().NoError(err)
	s.tender = t.ID
}

func (s *AwardServiceSuite) placeBids() []*bidmodels.Bid {
	ctx := context.Background()
	bids := make([]*bidmodels.Bid, 0, 3)
	for _, b := range []struct {
		bidder domain.ActorID
		amount int64
	}{
		{"bidder1", 900_000},
		{"bidder2", 850_000},
		{"bidder3", 950_000},
	} {
		placed, err := s.bidSvc.Place(ctx, s.tender, b.bidder, b.amount, "proposal")
		s.Require().NoError(err)
		bids = append(bids, placed)
	}
	return bids
}

// =============================================================================
// Close - full scenario
// =============================================================================

func (s *AwardServiceSuite) TestClose() {
	ctx := context.Background()
	bids := s.placeBids()
	winner := bids[1] // bidder2, 850k

	startSeq, err := s.log.LastSeq(ctx)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Close(ctx, s.tender, winner.ID, "officer"))

	s.Run("tender is awarded with the winner recorded", func() {
		t, err := s.tenders.FindByID(ctx, s.tender)
		s.Require().NoError(err)
		s.Equal(tendermodels.StatusAwarded, t.Status)
		s.Equal(winner.ID, t.WinningBid)
		s.Equal(domain.ActorID("bidder2"), t.Winner)
	})

	s.Run("every bid is resolved", func() {
		all, err := s.bids.ListByTender(ctx, s.tender)
		s.Require().NoError(err)
		s.Require().Len(all, 3)
		s.Equal(bidmodels.StatusNotSelected, all[0].Status)
		s.Equal(bidmodels.StatusWinner, all[1].Status)
		s.Equal(bidmodels.StatusNotSelected, all[2].Status)
	})

	s.Run("the commit is one TenderClosed then BidStatusUpdated per bid ascending", func() {
		events, err := s.log.List(ctx, startSeq+1, 0)
		s.Require().NoError(err)
		s.Require().Len(events, 4)

		s.Equal(ledger.EventTenderClosed, events[0].Type)
		var closed ledger.TenderClosedPayload
		s.Require().NoError(ledger.DecodePayload(events[0], &closed))
		s.Equal(winner.ID, closed.WinningBid)
		s.Equal(domain.ActorID("bidder2"), closed.Winner)

		wantStatuses := []string{"not_selected", "winner", "not_selected"}
		for i, e := range events[1:] {
			s.Equal(ledger.EventBidStatusUpdated, e.Type)
			var p ledger.BidStatusUpdatedPayload
			s.Require().NoError(ledger.DecodePayload(e, &p))
			s.Equal(domain.BidID(i+1), p.ID)
			s.Equal(wantStatuses[i], p.Status)
		}
	})

	s.Run("closing again is an invalid state", func() {
		err := s.service.Close(ctx, s.tender, winner.ID, "officer")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

// =============================================================================
// Close - precondition failures leave no trace
// =============================================================================

func (s *AwardServiceSuite) TestCloseFailures() {
	ctx := context.Background()
	bids := s.placeBids()

	assertUntouched := func(seqBefore uint64) {
		s.T().Helper()
		t, err := s.tenders.FindByID(ctx, s.tender)
		s.Require().NoError(err)
		s.Equal(tendermodels.StatusOpen, t.Status)
		seq, err := s.log.LastSeq(ctx)
		s.Require().NoError(err)
		s.Equal(seqBefore, seq)
	}

	seq, err := s.log.LastSeq(ctx)
	s.Require().NoError(err)

	s.Run("unknown tender is not found", func() {
		err := s.service.Close(ctx, 999, bids[0].ID, "officer")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		assertUntouched(seq)
	})

	s.Run("a bidder cannot close", func() {
		err := s.service.Close(ctx, s.tender, bids[0].ID, "bidder1")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assertUntouched(seq)
	})

	s.Run("unknown winning bid is a validation error", func() {
		err := s.service.Close(ctx, s.tender, 999, "officer")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		assertUntouched(seq)
	})

	s.Run("admin may close someone else's tender", func() {
		s.Require().NoError(s.service.Close(ctx, s.tender, bids[0].ID, "admin"))
	})

	s.Run("cancelled tender cannot be awarded", func() {
		// A fresh suite-level tender would be cleaner, but flipping the status
		// back exercises the same gate.
		t, err := s.tenders.FindByID(ctx, s.tender)
		s.Require().NoError(err)
		t.Status = tendermodels.StatusCancelled
		s.Require().NoError(s.tenders.Update(ctx, t))

		err = s.service.Close(ctx, s.tender, bids[0].ID, "officer")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

// =============================================================================
// Concurrency
// =============================================================================

func (s *AwardServiceSuite) TestConcurrentClose() {
	ctx := context.Background()
	bids := s.placeBids()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.service.Close(ctx, s.tender, bids[i].ID, "officer")
		}(i)
	}
	wg.Wait()

	// Exactly one closer wins; the loser fails on the state gate after the
	// winner's commit.
	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case dErrors.HasCode(err, dErrors.CodeInvalidState):
			lost++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, won)
	s.Equal(1, lost)

	t, err := s.tenders.FindByID(ctx, s.tender)
	s.Require().NoError(err)
	s.Equal(tendermodels.StatusAwarded, t.Status)

	var closes int
	events, err := s.log.List(ctx, 1, 0)
	s.Require().NoError(err)
	for _, e := range events {
		if e.Type == ledger.EventTenderClosed {
			closes++
		}
	}
	s.Equal(1, closes)
}

// =============================================================================
// Snapshot
// =============================================================================

func (s *AwardServiceSuite) TestSnapshot() {
	ctx := context.Background()
	bids := s.placeBids()

	s.Run("unknown tender is not found", func() {
		_, _, err := s.service.Snapshot(ctx, 999)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("snapshot is internally consistent after close", func() {
		s.Require().NoError(s.service.Close(ctx, s.tender, bids[0].ID, "officer"))

		t, all, err := s.service.Snapshot(ctx, s.tender)
		s.Require().NoError(err)
		s.Equal(tendermodels.StatusAwarded, t.Status)
		s.Require().Len(all, 3)
		for _, b := range all {
			s.NotEqual(bidmodels.StatusSubmitted, b.Status)
		}
	})
}
