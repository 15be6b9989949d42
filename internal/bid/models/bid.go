package models

import (
	"time"

	"tenderledger/pkg/domain"
	dErrors "tenderledger/pkg/domain-errors"
)

// BidStatus is the lifecycle state of a bid.
type BidStatus string

const (
	// StatusSubmitted is the initial state of every accepted bid.
	StatusSubmitted BidStatus = "submitted"
	// StatusWinner marks the single awarded bid of a tender. Terminal.
	StatusWinner BidStatus = "winner"
	// StatusNotSelected marks every other submitted bid once the tender is
	// awarded. Terminal.
	StatusNotSelected BidStatus = "not_selected"
)

// Bid is a monetary offer plus proposal submitted against an open tender.
//
// Invariants:
//   - Amount > 0 (the budget cap is policy, checked by the bid service)
//   - SubmittedAt < tender deadline at submission time
//   - at most one bid per bidder per tender
//   - exactly one bid per tender ever reaches StatusWinner
type Bid struct {
	ID          domain.BidID    `json:"id"`
	TenderID    domain.TenderID `json:"tender_id"`
	Bidder      domain.ActorID  `json:"bidder"`
	Amount      int64           `json:"amount"`
	Proposal    string          `json:"proposal"`
	SubmittedAt time.Time       `json:"submitted_at"`
	Status      BidStatus       `json:"status"`
}

// IsSubmitted reports whether the bid is still in the running.
func (b *Bid) IsSubmitted() bool {
	return b.Status == StatusSubmitted
}

// CanResolve checks that the bid can leave the submitted state. Resolution is
// the award engine's exclusive mutation path.
func (b *Bid) CanResolve() error {
	if b.Status != StatusSubmitted {
		return dErrors.Newf(dErrors.CodeInvalidState, "bid is already %s", b.Status)
	}
	return nil
}

// ApplyResolution marks the bid as winner or not selected. Call CanResolve
// first.
func (b *Bid) ApplyResolution(status BidStatus) {
	b.Status = status
}

// NewBid constructs a submitted bid, validating construction invariants.
func NewBid(id domain.BidID, tenderID domain.TenderID, bidder domain.ActorID, amount int64, proposal string, now time.Time) (*Bid, error) {
	if bidder.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "bidder cannot be empty")
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "bid amount must be positive")
	}
	return &Bid{
		ID:          id,
		TenderID:    tenderID,
		Bidder:      bidder,
		Amount:      amount,
		Proposal:    proposal,
		SubmittedAt: now,
		Status:      StatusSubmitted,
	}, nil
}
