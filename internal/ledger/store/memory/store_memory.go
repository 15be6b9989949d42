// Package memory provides the in-process event log store. It is the default
// backend for the engine; the postgres variant exists for durable deployments.
package memory

import (
	"context"
	"sync"

	"tenderledger/internal/ledger"
)

// Store keeps the log in a mutex-guarded slice. Seq i lives at index i-1, so
// sequence numbers are gapless by construction.
type Store struct {
	mu     sync.RWMutex
	events []ledger.Event
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, events ...ledger.Event) ([]ledger.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := uint64(len(s.events)) + 1
	stamped := make([]ledger.Event, len(events))
	for i, e := range events {
		e.Seq = next + uint64(i)
		stamped[i] = e
	}
	s.events = append(s.events, stamped...)
	return stamped, nil
}

func (s *Store) List(_ context.Context, fromSeq uint64, limit int) ([]ledger.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if fromSeq < 1 {
		fromSeq = 1
	}
	if fromSeq > uint64(len(s.events)) {
		return nil, nil
	}
	tail := s.events[fromSeq-1:]
	if limit > 0 && limit < len(tail) {
		tail = tail[:limit]
	}
	return append([]ledger.Event{}, tail...), nil
}

func (s *Store) LastSeq(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.events)), nil
}
