package models

import (
	"time"

	"tenderledger/pkg/domain"
	dErrors "tenderledger/pkg/domain-errors"
)

// Actor is a registered identity interacting with the engine.
//
// Invariants:
//   - ID is non-empty and immutable
//   - Role is one of admin, officer, bidder and immutable after registration
//   - actors are never deleted, only deactivated, so historical events keep
//     their attribution
type Actor struct {
	ID           domain.ActorID `json:"id"`
	Role         domain.Role    `json:"role"`
	Name         string         `json:"name"`
	Active       bool           `json:"active"`
	RegisteredAt time.Time      `json:"registered_at"`
}

// IsActive reports whether the actor may currently act.
func (a *Actor) IsActive() bool {
	return a.Active
}

// CanSetActive checks if the actor can transition to the given active flag.
// Flipping to the current value is rejected so a repeated admin action
// surfaces as an error instead of silently re-committing.
func (a *Actor) CanSetActive(active bool) error {
	if a.Active == active {
		if active {
			return dErrors.New(dErrors.CodeInvalidState, "actor is already active")
		}
		return dErrors.New(dErrors.CodeInvalidState, "actor is already deactivated")
	}
	return nil
}

// ApplySetActive transitions the actor's active flag. Call CanSetActive first.
func (a *Actor) ApplySetActive(active bool) {
	a.Active = active
}

// NewActor constructs an active actor, validating registration invariants.
func NewActor(id domain.ActorID, role domain.Role, name string, now time.Time) (*Actor, error) {
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "actor id cannot be empty")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "actor role is invalid")
	}
	if len(name) > 256 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "actor name must be 256 characters or less")
	}
	return &Actor{
		ID:           id,
		Role:         role,
		Name:         name,
		Active:       true,
		RegisteredAt: now,
	}, nil
}
