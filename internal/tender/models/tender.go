package models

import (
	"time"

	"tenderledger/pkg/domain"
	dErrors "tenderledger/pkg/domain-errors"
)

// TenderStatus is the lifecycle state of a tender.
type TenderStatus string

const (
	// StatusDraft is the optional pre-publication state. Tenders are created
	// directly in StatusOpen unless the engine enables drafts.
	StatusDraft TenderStatus = "draft"
	// StatusOpen is the only state accepting bids.
	StatusOpen TenderStatus = "open"
	// StatusAwarded is terminal: the tender was closed with a single winner.
	// Closing and awarding are one commit, so there is no separate closed
	// state.
	StatusAwarded TenderStatus = "awarded"
	// StatusCancelled is terminal.
	StatusCancelled TenderStatus = "cancelled"
)

// allowedTransitions is the single source of truth for the lifecycle state
// machine. Terminal states map to nothing; every transition not listed here
// is forbidden.
var allowedTransitions = map[TenderStatus][]TenderStatus{
	StatusDraft:     {StatusOpen, StatusCancelled},
	StatusOpen:      {StatusAwarded, StatusCancelled},
	StatusAwarded:   {},
	StatusCancelled: {},
}

// CanTransitionTo reports whether the transition is allowed.
func (s TenderStatus) CanTransitionTo(next TenderStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Tender is a published procurement request open for competitive bids.
//
// Invariants:
//   - Budget > 0
//   - Deadline > CreatedAt at creation; immutable once the tender is open
//   - status transitions follow allowedTransitions and are irreversible
//   - Winner and WinningBid are set exactly when Status is StatusAwarded
type Tender struct {
	ID          domain.TenderID `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Budget      int64           `json:"budget"`
	Deadline    time.Time       `json:"deadline"`
	Creator     domain.ActorID  `json:"creator"`
	Status      TenderStatus    `json:"status"`
	Winner      domain.ActorID  `json:"winner,omitempty"`
	WinningBid  domain.BidID    `json:"winning_bid,omitempty"`
	DocumentRef string          `json:"document_ref,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// IsOpen reports whether the tender is in the open state. Note that an open
// tender past its deadline is still "open" until explicitly closed or
// cancelled; use IsBiddable for the bidding gate.
func (t *Tender) IsOpen() bool {
	return t.Status == StatusOpen
}

// IsBiddable reports whether the tender accepts bids at the given instant.
// Expiry is lazy: the deadline gates bidding and listing, never the status.
func (t *Tender) IsBiddable(now time.Time) bool {
	return t.Status == StatusOpen && now.Before(t.Deadline)
}

// CanPublish checks the draft-to-open transition.
func (t *Tender) CanPublish() error {
	if !t.Status.CanTransitionTo(StatusOpen) {
		return dErrors.Newf(dErrors.CodeInvalidState, "tender is %s, only drafts can be published", t.Status)
	}
	return nil
}

// ApplyPublish transitions the tender to open. Call CanPublish first.
func (t *Tender) ApplyPublish() {
	t.Status = StatusOpen
}

// CanCancel checks the open-to-cancelled transition.
func (t *Tender) CanCancel() error {
	if !t.Status.CanTransitionTo(StatusCancelled) {
		return dErrors.Newf(dErrors.CodeInvalidState, "tender is %s and cannot be cancelled", t.Status)
	}
	return nil
}

// ApplyCancel transitions the tender to cancelled. Call CanCancel first.
func (t *Tender) ApplyCancel() {
	t.Status = StatusCancelled
}

// CanAward checks the open-to-awarded transition. The deadline never gates
// closing; only the state does.
func (t *Tender) CanAward() error {
	if !t.Status.CanTransitionTo(StatusAwarded) {
		return dErrors.Newf(dErrors.CodeInvalidState, "tender is %s and cannot be awarded", t.Status)
	}
	return nil
}

// ApplyAward transitions the tender to awarded and records the winner.
// Call CanAward first.
func (t *Tender) ApplyAward(winningBid domain.BidID, winner domain.ActorID) {
	t.Status = StatusAwarded
	t.WinningBid = winningBid
	t.Winner = winner
}

// NewTender constructs a tender, validating creation invariants. The initial
// status is supplied by the service so the draft policy stays out of the
// model.
func NewTender(id domain.TenderID, title, description string, budget int64, deadline time.Time, creator domain.ActorID, status TenderStatus, documentRef string, now time.Time) (*Tender, error) {
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tender title cannot be empty")
	}
	if description == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tender description cannot be empty")
	}
	if budget <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tender budget must be positive")
	}
	if !deadline.After(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tender deadline must be in the future")
	}
	if status != StatusDraft && status != StatusOpen {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tender must start as draft or open")
	}
	return &Tender{
		ID:          id,
		Title:       title,
		Description: description,
		Budget:      budget,
		Deadline:    deadline,
		Creator:     creator,
		Status:      status,
		DocumentRef: documentRef,
		CreatedAt:   now,
	}, nil
}
