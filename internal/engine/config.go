package engine

import (
	bidservice "tenderledger/internal/bid/service"
	dErrors "tenderledger/pkg/domain-errors"
)

// Config resolves the behaviors the engine's source contract variants
// disagreed on. Zero value means: bids capped at budget, no draft state,
// duplicate bids rejected loudly.
type Config struct {
	BidAmountPolicy    bidservice.AmountPolicy
	AllowDraftState    bool
	DuplicateBidPolicy bidservice.DuplicatePolicy
}

// Validate normalizes empty fields to defaults and rejects unknown values.
func (c *Config) Validate() error {
	switch c.BidAmountPolicy {
	case "":
		c.BidAmountPolicy = bidservice.AmountCappedAtBudget
	case bidservice.AmountCappedAtBudget, bidservice.AmountUncapped:
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown bid amount policy %q", c.BidAmountPolicy)
	}
	switch c.DuplicateBidPolicy {
	case "":
		c.DuplicateBidPolicy = bidservice.DuplicateReject
	case bidservice.DuplicateReject, bidservice.DuplicateRejectSilently:
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown duplicate bid policy %q", c.DuplicateBidPolicy)
	}
	return nil
}
