// Package ledger is the append-only event log at the heart of the engine.
//
// Every state-changing operation commits by appending one or more events; the
// sequence number order is the sole source of truth for "what happened when".
// Tender, bid and actor tables can always be rebuilt by replaying the log from
// sequence zero (see internal/ledger/replay).
package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"tenderledger/pkg/domain"
)

// EventType classifies a ledger event.
type EventType string

const (
	EventActorRegistered    EventType = "actor_registered"
	EventActorStatusChanged EventType = "actor_status_changed"
	EventTenderCreated      EventType = "tender_created"
	EventTenderPublished    EventType = "tender_published"
	EventTenderCancelled    EventType = "tender_cancelled"
	EventBidPlaced          EventType = "bid_placed"
	EventTenderClosed       EventType = "tender_closed"
	EventBidStatusUpdated   EventType = "bid_status_updated"
)

// Event is one committed entry in the log.
//
// Invariants:
//   - Seq is strictly increasing and gapless, starting at 1
//   - events are never mutated or deleted after Append
//   - two events with the same TenderID are consumable in Seq order
type Event struct {
	Seq       uint64          `json:"seq"`
	Type      EventType       `json:"type"`
	TenderID  domain.TenderID `json:"tender_id"`
	ActorID   domain.ActorID  `json:"actor_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// New builds an unsequenced event; Append assigns Seq at commit time.
func New(typ EventType, tenderID domain.TenderID, actorID domain.ActorID, payload any, ts time.Time) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return Event{
		Type:      typ,
		TenderID:  tenderID,
		ActorID:   actorID,
		Payload:   raw,
		Timestamp: ts,
	}, nil
}

// DecodePayload unmarshals the event payload into dst.
func DecodePayload(e Event, dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload (seq %d): %w", e.Type, e.Seq, err)
	}
	return nil
}

// Payload shapes. Entity-creating events carry the full record so replay can
// reconstruct tables without consulting any other source.

type ActorRegisteredPayload struct {
	ID           domain.ActorID `json:"id"`
	Role         domain.Role    `json:"role"`
	Name         string         `json:"name"`
	RegisteredAt time.Time      `json:"registered_at"`
}

type ActorStatusChangedPayload struct {
	ID     domain.ActorID `json:"id"`
	Active bool           `json:"active"`
}

type TenderCreatedPayload struct {
	ID          domain.TenderID `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Budget      int64           `json:"budget"`
	Deadline    time.Time       `json:"deadline"`
	Creator     domain.ActorID  `json:"creator"`
	Status      string          `json:"status"`
	DocumentRef string          `json:"document_ref,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type TenderPublishedPayload struct {
	ID domain.TenderID `json:"id"`
}

type TenderCancelledPayload struct {
	ID domain.TenderID `json:"id"`
}

type BidPlacedPayload struct {
	TenderID    domain.TenderID `json:"tender_id"`
	ID          domain.BidID    `json:"id"`
	Bidder      domain.ActorID  `json:"bidder"`
	Amount      int64           `json:"amount"`
	Proposal    string          `json:"proposal"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

type TenderClosedPayload struct {
	ID         domain.TenderID `json:"id"`
	WinningBid domain.BidID    `json:"winning_bid"`
	Winner     domain.ActorID  `json:"winner"`
}

type BidStatusUpdatedPayload struct {
	TenderID domain.TenderID `json:"tender_id"`
	ID       domain.BidID    `json:"id"`
	Status   string          `json:"status"`
}
