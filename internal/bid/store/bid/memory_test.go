package bid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tenderledger/internal/bid/models"
	"tenderledger/pkg/domain"
	"tenderledger/pkg/platform/sentinel"
)

type BidStoreSuite struct {
	suite.Suite
	store *InMemory
}

func TestBidStoreSuite(t *testing.T) {
	suite.Run(t, new(BidStoreSuite))
}

func (s *BidStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func (s *BidStoreSuite) bid(tenderID domain.TenderID, id domain.BidID, bidder domain.ActorID) *models.Bid {
	return &models.Bid{
		ID:          id,
		TenderID:    tenderID,
		Bidder:      bidder,
		Amount:      100,
		SubmittedAt: time.Now(),
		Status:      models.StatusSubmitted,
	}
}

func (s *BidStoreSuite) TestInsertAndFind() {
	ctx := context.Background()

	s.Require().NoError(s.store.Insert(ctx, s.bid(1, 1, "bidder1")))
	s.ErrorIs(s.store.Insert(ctx, s.bid(1, 1, "bidder2")), sentinel.ErrConflict)

	// The same bid id under another tender is a different bid.
	s.Require().NoError(s.store.Insert(ctx, s.bid(2, 1, "bidder1")))

	got, err := s.store.FindByID(ctx, 1, 1)
	s.Require().NoError(err)
	s.Equal(domain.ActorID("bidder1"), got.Bidder)

	_, err = s.store.FindByID(ctx, 1, 2)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *BidStoreSuite) TestFindByBidder() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, s.bid(1, 1, "bidder1")))
	s.Require().NoError(s.store.Insert(ctx, s.bid(1, 2, "bidder2")))

	got, err := s.store.FindByBidder(ctx, 1, "bidder2")
	s.Require().NoError(err)
	s.Equal(domain.BidID(2), got.ID)

	_, err = s.store.FindByBidder(ctx, 1, "bidder3")
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByBidder(ctx, 2, "bidder2")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *BidStoreSuite) TestUpdate() {
	ctx := context.Background()

	s.ErrorIs(s.store.Update(ctx, s.bid(1, 1, "bidder1")), sentinel.ErrNotFound)

	s.Require().NoError(s.store.Insert(ctx, s.bid(1, 1, "bidder1")))
	b := s.bid(1, 1, "bidder1")
	b.Status = models.StatusWinner
	s.Require().NoError(s.store.Update(ctx, b))

	got, err := s.store.FindByID(ctx, 1, 1)
	s.Require().NoError(err)
	s.Equal(models.StatusWinner, got.Status)
}

func (s *BidStoreSuite) TestListByTenderOrdersByID() {
	ctx := context.Background()
	for _, id := range []domain.BidID{3, 1, 2} {
		s.Require().NoError(s.store.Insert(ctx, s.bid(1, id, domain.ActorID("bidder"+id.String()))))
	}

	bids, err := s.store.ListByTender(ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(bids, 3)
	for i, b := range bids {
		s.Equal(domain.BidID(i+1), b.ID)
	}

	empty, err := s.store.ListByTender(ctx, 99)
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *BidStoreSuite) TestLastIDPerTender() {
	ctx := context.Background()

	last, err := s.store.LastID(ctx, 1)
	s.Require().NoError(err)
	s.Equal(domain.BidID(0), last)

	s.Require().NoError(s.store.Insert(ctx, s.bid(1, 4, "bidder1")))
	s.Require().NoError(s.store.Insert(ctx, s.bid(2, 1, "bidder1")))

	last, err = s.store.LastID(ctx, 1)
	s.Require().NoError(err)
	s.Equal(domain.BidID(4), last)

	last, err = s.store.LastID(ctx, 2)
	s.Require().NoError(err)
	s.Equal(domain.BidID(1), last)
}
