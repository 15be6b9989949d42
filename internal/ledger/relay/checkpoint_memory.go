package relay

import (
	"context"
	"sync"
)

// MemoryCheckpoints keeps the relay position in memory. Suitable when the
// log itself is in memory and a restart replays everything anyway.
type MemoryCheckpoints struct {
	mu  sync.Mutex
	seq uint64
}

func NewMemoryCheckpoints() *MemoryCheckpoints {
	return &MemoryCheckpoints{}
}

func (c *MemoryCheckpoints) Load(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq, nil
}

func (c *MemoryCheckpoints) Save(_ context.Context, seq uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq > c.seq {
		c.seq = seq
	}
	return nil
}
