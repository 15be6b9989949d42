// Package bid provides the in-memory bid store. Bids are keyed by tender and
// a per-tender id whose ascending order equals submission order.
package bid

import (
	"context"
	"sort"
	"sync"

	"tenderledger/internal/bid/models"
	"tenderledger/pkg/domain"
	"tenderledger/pkg/platform/sentinel"
)

// InMemory stores bids per tender.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[domain.TenderID]map[domain.BidID]*models.Bid
	lastIDs map[domain.TenderID]domain.BidID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[domain.TenderID]map[domain.BidID]*models.Bid),
		lastIDs: make(map[domain.TenderID]domain.BidID),
	}
}

// Insert adds a bid with its id already assigned. Returns
// sentinel.ErrConflict when the id is taken. The per-tender high-water mark
// advances so ids are never reused.
func (s *InMemory) Insert(_ context.Context, b *models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bids, ok := s.byID[b.TenderID]
	if !ok {
		bids = make(map[domain.BidID]*models.Bid)
		s.byID[b.TenderID] = bids
	}
	if _, ok := bids[b.ID]; ok {
		return sentinel.ErrConflict
	}
	bids[b.ID] = clone(b)
	if b.ID > s.lastIDs[b.TenderID] {
		s.lastIDs[b.TenderID] = b.ID
	}
	return nil
}

// FindByID returns a copy of the bid or sentinel.ErrNotFound.
func (s *InMemory) FindByID(_ context.Context, tenderID domain.TenderID, id domain.BidID) (*models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byID[tenderID][id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(b), nil
}

// FindByBidder returns the bid a bidder holds on the tender, or
// sentinel.ErrNotFound. At most one exists by construction.
func (s *InMemory) FindByBidder(_ context.Context, tenderID domain.TenderID, bidder domain.ActorID) (*models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.byID[tenderID] {
		if b.Bidder == bidder {
			return clone(b), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Update persists a modified bid. Returns sentinel.ErrNotFound when absent.
func (s *InMemory) Update(_ context.Context, b *models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[b.TenderID][b.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[b.TenderID][b.ID] = clone(b)
	return nil
}

// ListByTender returns the tender's bids ordered by id ascending, which is
// submission order.
func (s *InMemory) ListByTender(_ context.Context, tenderID domain.TenderID) ([]*models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bids := s.byID[tenderID]
	out := make([]*models.Bid, 0, len(bids))
	for _, b := range bids {
		out = append(out, clone(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LastID returns the highest bid id ever assigned under the tender, 0 when
// none.
func (s *InMemory) LastID(_ context.Context, tenderID domain.TenderID) (domain.BidID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastIDs[tenderID], nil
}

// Restore inserts a bid during replay.
func (s *InMemory) Restore(ctx context.Context, b *models.Bid) error {
	return s.Insert(ctx, b)
}

func clone(b *models.Bid) *models.Bid {
	c := *b
	return &c
}
