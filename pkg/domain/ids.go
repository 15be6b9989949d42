package domain

import (
	"strconv"

	dErrors "tenderledger/pkg/domain-errors"
)

// ActorID identifies a registered actor. It is an opaque external identifier
// (the wallet-address equivalent supplied by the caller), never generated here.
type ActorID string

// IsZero reports whether the actor id is unset.
func (a ActorID) IsZero() bool { return a == "" }

func (a ActorID) String() string { return string(a) }

// ParseActorID constructs an ActorID from external input.
//
// Usage: call from transport adapters when translating credentials into the
// actor identifier used by the engine.
//
// Errors: returns CodeInvalidInput when the value is empty.
func ParseActorID(s string) (ActorID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "actor id cannot be empty")
	}
	return ActorID(s), nil
}

// TenderID identifies a tender. IDs are allocated monotonically by the tender
// store, are never reused, and survive cancellation.
type TenderID uint64

// IsZero reports whether the tender id is unset. Zero is never a valid id;
// allocation starts at 1.
func (t TenderID) IsZero() bool { return t == 0 }

func (t TenderID) String() string { return strconv.FormatUint(uint64(t), 10) }

// BidID identifies a bid within a single tender. IDs are allocated
// monotonically per tender, so ascending BidID equals submission order.
type BidID uint64

// IsZero reports whether the bid id is unset.
func (b BidID) IsZero() bool { return b == 0 }

func (b BidID) String() string { return strconv.FormatUint(uint64(b), 10) }
