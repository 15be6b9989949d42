package ledger

import "context"

// Store persists the event log.
//
// Append is the engine's commit point: implementations must assign contiguous,
// gapless sequence numbers to the batch and make the whole batch visible
// atomically, or fail without appending anything. Callers never retry; an
// Append failure surfaces to the caller as an internal error with no state
// mutated.
type Store interface {
	// Append commits the batch and returns the events with Seq assigned.
	Append(ctx context.Context, events ...Event) ([]Event, error)
	// List returns events with Seq >= fromSeq in ascending order, at most
	// limit entries (limit <= 0 means no cap). The result is a snapshot; the
	// caller may page through a growing log by advancing fromSeq.
	List(ctx context.Context, fromSeq uint64, limit int) ([]Event, error)
	// LastSeq returns the highest committed sequence number, 0 when empty.
	LastSeq(ctx context.Context) (uint64, error)
}
