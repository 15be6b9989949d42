package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tenderledger/internal/ledger"
	"tenderledger/pkg/domain"
)

type LedgerStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func (s *LedgerStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func TestLedgerStoreSuite(t *testing.T) {
	suite.Run(t, new(LedgerStoreSuite))
}

func (s *LedgerStoreSuite) newEvent(typ ledger.EventType, tenderID domain.TenderID) ledger.Event {
	e, err := ledger.New(typ, tenderID, domain.ActorID("actor-1"), struct{}{}, time.Now().UTC())
	s.Require().NoError(err)
	return e
}

func (s *LedgerStoreSuite) TestAppendAssignsGaplessSequence() {
	first, err := s.store.Append(s.ctx, s.newEvent(ledger.EventTenderCreated, 1))
	s.Require().NoError(err)
	s.Require().Len(first, 1)
	s.Equal(uint64(1), first[0].Seq)

	batch, err := s.store.Append(s.ctx,
		s.newEvent(ledger.EventBidPlaced, 1),
		s.newEvent(ledger.EventBidPlaced, 1),
	)
	s.Require().NoError(err)
	s.Require().Len(batch, 2)
	s.Equal(uint64(2), batch[0].Seq)
	s.Equal(uint64(3), batch[1].Seq)

	last, err := s.store.LastSeq(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(3), last)
}

func (s *LedgerStoreSuite) TestListPagesFromOffset() {
	for range 5 {
		_, err := s.store.Append(s.ctx, s.newEvent(ledger.EventBidPlaced, 2))
		s.Require().NoError(err)
	}

	s.Run("from the beginning", func() {
		events, err := s.store.List(s.ctx, 0, 0)
		s.Require().NoError(err)
		s.Len(events, 5)
		s.Equal(uint64(1), events[0].Seq)
	})

	s.Run("from an offset with a limit", func() {
		events, err := s.store.List(s.ctx, 3, 2)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(uint64(3), events[0].Seq)
		s.Equal(uint64(4), events[1].Seq)
	})

	s.Run("past the end", func() {
		events, err := s.store.List(s.ctx, 6, 0)
		s.Require().NoError(err)
		s.Empty(events)
	})
}

func (s *LedgerStoreSuite) TestConcurrentAppendsKeepSequenceContiguous() {
	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func(tender domain.TenderID) {
			defer wg.Done()
			for range perWriter {
				_, err := s.store.Append(s.ctx, s.newEvent(ledger.EventBidPlaced, tender))
				s.NoError(err)
			}
		}(domain.TenderID(w + 1))
	}
	wg.Wait()

	events, err := s.store.List(s.ctx, 0, 0)
	s.Require().NoError(err)
	s.Require().Len(events, writers*perWriter)
	for i, e := range events {
		s.Equal(uint64(i+1), e.Seq)
	}
}

func (s *LedgerStoreSuite) TestCursorResumesAndRestarts() {
	for range 4 {
		_, err := s.store.Append(s.ctx, s.newEvent(ledger.EventBidPlaced, 3))
		s.Require().NoError(err)
	}

	cur := ledger.NewCursor(s.store, 0)
	events, err := cur.Next(s.ctx)
	s.Require().NoError(err)
	s.Len(events, 4)
	s.Equal(uint64(4), cur.Position())

	// Caught up: next call yields nothing.
	events, err = cur.Next(s.ctx)
	s.Require().NoError(err)
	s.Empty(events)

	// A new cursor at the recorded position sees only later events.
	_, err = s.store.Append(s.ctx, s.newEvent(ledger.EventTenderClosed, 3))
	s.Require().NoError(err)

	resumed := ledger.NewCursor(s.store, 4)
	events, err = resumed.Next(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(uint64(5), events[0].Seq)
}
