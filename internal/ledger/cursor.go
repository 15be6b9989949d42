package ledger

import "context"

// DefaultBatchSize bounds how many events a cursor pulls per call.
const DefaultBatchSize = 256

// Cursor is a restartable, pull-based stream over the log. Consumers attach at
// a sequence offset and page forward; a cursor holds no store state, so it can
// be recreated at its last position after a crash.
//
// This replaces callback registration: external observers (notification
// relays, UI feeds) poll the committed log instead of hooking into the engine.
type Cursor struct {
	store Store
	next  uint64
	batch int
}

// NewCursor returns a cursor positioned after fromSeq: the first Next call
// yields events with Seq > fromSeq. Use fromSeq 0 to read from the beginning.
func NewCursor(store Store, fromSeq uint64) *Cursor {
	return &Cursor{store: store, next: fromSeq + 1, batch: DefaultBatchSize}
}

// Next returns the next batch of committed events, or an empty slice when the
// cursor has caught up with the log.
func (c *Cursor) Next(ctx context.Context) ([]Event, error) {
	events, err := c.store.List(ctx, c.next, c.batch)
	if err != nil {
		return nil, err
	}
	if len(events) > 0 {
		c.next = events[len(events)-1].Seq + 1
	}
	return events, nil
}

// Position returns the sequence number of the last event already consumed.
func (c *Cursor) Position() uint64 {
	return c.next - 1
}
