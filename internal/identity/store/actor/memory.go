// Package actor provides the in-memory actor store. It is a pure data
// component: authorization checks live in the services that consult it.
package actor

import (
	"context"
	"sort"
	"sync"

	"tenderledger/internal/identity/models"
	"tenderledger/pkg/domain"
	"tenderledger/pkg/platform/sentinel"
)

// InMemory stores actors keyed by id.
type InMemory struct {
	mu     sync.RWMutex
	actors map[domain.ActorID]*models.Actor
}

func NewInMemory() *InMemory {
	return &InMemory{actors: make(map[domain.ActorID]*models.Actor)}
}

// Create inserts a new actor. Returns sentinel.ErrConflict when the id is
// already registered; registration never overwrites.
func (s *InMemory) Create(_ context.Context, a *models.Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actors[a.ID]; ok {
		return sentinel.ErrConflict
	}
	s.actors[a.ID] = clone(a)
	return nil
}

// FindByID returns a copy of the actor or sentinel.ErrNotFound.
func (s *InMemory) FindByID(_ context.Context, id domain.ActorID) (*models.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(a), nil
}

// Update persists a modified actor. Returns sentinel.ErrNotFound when absent.
func (s *InMemory) Update(_ context.Context, a *models.Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actors[a.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.actors[a.ID] = clone(a)
	return nil
}

// List returns all actors ordered by registration time, then id for stability.
func (s *InMemory) List(_ context.Context) ([]*models.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Actor, 0, len(s.actors))
	for _, a := range s.actors {
		out = append(out, clone(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.Before(out[j].RegisteredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Restore inserts an actor during replay. A well-formed log registers each id
// exactly once, so the conflict check stays on.
func (s *InMemory) Restore(ctx context.Context, a *models.Actor) error {
	return s.Create(ctx, a)
}

func clone(a *models.Actor) *models.Actor {
	c := *a
	return &c
}
