// Package locks provides a keyed read/write mutex used to serialize all
// mutating operations on a single tender while letting different tenders
// proceed in parallel.
package locks

import (
	"sync"

	"tenderledger/pkg/domain"
)

// Keyed is a set of per-tender RW mutexes. Mutating operations take the
// exclusive lock for their tender; readers that need a consistent view of a
// tender together with its bids take the shared lock.
//
// Entries are reference counted and removed once unused, so the map does not
// grow with the number of tenders ever seen.
type Keyed struct {
	mu      sync.Mutex
	entries map[domain.TenderID]*entry
}

type entry struct {
	refs int
	lock sync.RWMutex
}

// NewKeyed creates an empty keyed mutex set.
func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[domain.TenderID]*entry)}
}

func (k *Keyed) acquire(id domain.TenderID) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[id]
	if !ok {
		e = &entry{}
		k.entries[id] = e
	}
	e.refs++
	return e
}

func (k *Keyed) release(id domain.TenderID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e := k.entries[id]
	e.refs--
	if e.refs == 0 {
		delete(k.entries, id)
	}
}

// Lock acquires the exclusive lock for the given tender and returns the
// release function. The release function must run on every exit path,
// including failures.
func (k *Keyed) Lock(id domain.TenderID) func() {
	e := k.acquire(id)
	e.lock.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.lock.Unlock()
			k.release(id)
		})
	}
}

// RLock acquires the shared lock for the given tender and returns the release
// function.
func (k *Keyed) RLock(id domain.TenderID) func() {
	e := k.acquire(id)
	e.lock.RLock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.lock.RUnlock()
			k.release(id)
		})
	}
}
