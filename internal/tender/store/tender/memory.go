// Package tender provides the in-memory tender store. IDs are assigned by the
// service at commit time; the store only tracks the high-water mark so
// allocation stays monotonic across restores.
package tender

import (
	"context"
	"sort"
	"sync"

	"tenderledger/internal/tender/models"
	"tenderledger/pkg/domain"
	"tenderledger/pkg/platform/sentinel"
)

// InMemory stores tenders keyed by id.
type InMemory struct {
	mu      sync.RWMutex
	tenders map[domain.TenderID]*models.Tender
	lastID  domain.TenderID
}

func NewInMemory() *InMemory {
	return &InMemory{tenders: make(map[domain.TenderID]*models.Tender)}
}

// Insert adds a tender with its id already assigned. Returns
// sentinel.ErrConflict when the id is taken. The high-water mark advances so
// LastID never hands out a reused id, even after cancellation.
func (s *InMemory) Insert(_ context.Context, t *models.Tender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenders[t.ID]; ok {
		return sentinel.ErrConflict
	}
	s.tenders[t.ID] = clone(t)
	if t.ID > s.lastID {
		s.lastID = t.ID
	}
	return nil
}

// FindByID returns a copy of the tender or sentinel.ErrNotFound.
func (s *InMemory) FindByID(_ context.Context, id domain.TenderID) (*models.Tender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenders[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(t), nil
}

// Update persists a modified tender. Returns sentinel.ErrNotFound when absent.
func (s *InMemory) Update(_ context.Context, t *models.Tender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenders[t.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.tenders[t.ID] = clone(t)
	return nil
}

// List returns all tenders ordered by id ascending.
func (s *InMemory) List(_ context.Context) ([]*models.Tender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Tender, 0, len(s.tenders))
	for _, t := range s.tenders {
		out = append(out, clone(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LastID returns the highest id ever assigned, 0 when empty.
func (s *InMemory) LastID(_ context.Context) (domain.TenderID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastID, nil
}

// Restore inserts a tender during replay.
func (s *InMemory) Restore(ctx context.Context, t *models.Tender) error {
	return s.Insert(ctx, t)
}

func clone(t *models.Tender) *models.Tender {
	c := *t
	return &c
}
