// Package replay rebuilds the actor, tender and bid tables from the event
// log. The log is the source of truth: replaying from sequence zero must
// reproduce tables identical to the live state at any checkpoint.
package replay

import (
	"context"
	"fmt"

	bidmodels "tenderledger/internal/bid/models"
	identitymodels "tenderledger/internal/identity/models"
	"tenderledger/internal/ledger"
	tendermodels "tenderledger/internal/tender/models"
	"tenderledger/pkg/domain"
)

// ActorTable is the subset of the actor store replay writes to.
type ActorTable interface {
	Restore(ctx context.Context, a *identitymodels.Actor) error
	FindByID(ctx context.Context, id domain.ActorID) (*identitymodels.Actor, error)
	Update(ctx context.Context, a *identitymodels.Actor) error
}

// TenderTable is the subset of the tender store replay writes to.
type TenderTable interface {
	Restore(ctx context.Context, t *tendermodels.Tender) error
	FindByID(ctx context.Context, id domain.TenderID) (*tendermodels.Tender, error)
	Update(ctx context.Context, t *tendermodels.Tender) error
}

// BidTable is the subset of the bid store replay writes to.
type BidTable interface {
	Restore(ctx context.Context, b *bidmodels.Bid) error
	FindByID(ctx context.Context, tenderID domain.TenderID, id domain.BidID) (*bidmodels.Bid, error)
	Update(ctx context.Context, b *bidmodels.Bid) error
}

// Rebuild replays the whole log into empty tables. It pages through the store
// with a cursor, so logs larger than memory replay fine.
func Rebuild(ctx context.Context, src ledger.Store, actors ActorTable, tenders TenderTable, bids BidTable) error {
	cur := ledger.NewCursor(src, 0)
	for {
		batch, err := cur.Next(ctx)
		if err != nil {
			return fmt.Errorf("read log: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}
		for _, e := range batch {
			if err := apply(ctx, e, actors, tenders, bids); err != nil {
				return fmt.Errorf("apply seq %d: %w", e.Seq, err)
			}
		}
	}
}

func apply(ctx context.Context, e ledger.Event, actors ActorTable, tenders TenderTable, bids BidTable) error {
	switch e.Type {
	case ledger.EventActorRegistered:
		var p ledger.ActorRegisteredPayload
		if err := ledger.DecodePayload(e, &p); err != nil {
			return err
		}
		return actors.Restore(ctx, &identitymodels.Actor{
			ID:           p.ID,
			Role:         p.Role,
			Name:         p.Name,
			Active:       true,
			RegisteredAt: p.RegisteredAt,
		})

	case ledger.EventActorStatusChanged:
		var p ledger.ActorStatusChangedPayload
		if err := ledger.DecodePayload(e, &p); err != nil {
			return err
		}
		a, err := actors.FindByID(ctx, p.ID)
		if err != nil {
			return err
		}
		a.ApplySetActive(p.Active)
		return actors.Update(ctx, a)

	case ledger.EventTenderCreated:
		var p ledger.TenderCreatedPayload
		if err := ledger.DecodePayload(e, &p); err != nil {
			return err
		}
		return tenders.Restore(ctx, &tendermodels.Tender{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Budget:      p.Budget,
			Deadline:    p.Deadline,
			Creator:     p.Creator,
			Status:      tendermodels.TenderStatus(p.Status),
			DocumentRef: p.DocumentRef,
			CreatedAt:   p.CreatedAt,
		})

	case ledger.EventTenderPublished:
		var p ledger.TenderPublishedPayload
		if err := ledger.DecodePayload(e, &p); err != nil {
			return err
		}
		t, err := tenders.FindByID(ctx, p.ID)
		if err != nil {
			return err
		}
		t.ApplyPublish()
		return tenders.Update(ctx, t)

	case ledger.EventTenderCancelled:
		var p ledger.TenderCancelledPayload
		if err := ledger.DecodePayload(e, &p); err != nil {
			return err
		}
		t, err := tenders.FindByID(ctx, p.ID)
		if err != nil {
			return err
		}
		t.ApplyCancel()
		return tenders.Update(ctx, t)

	case ledger.EventBidPlaced:
		var p ledger.BidPlacedPayload
		if err := ledger.DecodePayload(e, &p); err != nil {
			return err
		}
		return bids.Restore(ctx, &bidmodels.Bid{
			ID:          p.ID,
			TenderID:    p.TenderID,
			Bidder:      p.Bidder,
			Amount:      p.Amount,
			Proposal:    p.Proposal,
			SubmittedAt: p.SubmittedAt,
			Status:      bidmodels.StatusSubmitted,
		})

	case ledger.EventTenderClosed:
		var p ledger.TenderClosedPayload
		if err := ledger.DecodePayload(e, &p); err != nil {
			return err
		}
		t, err := tenders.FindByID(ctx, p.ID)
		if err != nil {
			return err
		}
		t.ApplyAward(p.WinningBid, p.Winner)
		return tenders.Update(ctx, t)

	case ledger.EventBidStatusUpdated:
		var p ledger.BidStatusUpdatedPayload
		if err := ledger.DecodePayload(e, &p); err != nil {
			return err
		}
		b, err := bids.FindByID(ctx, p.TenderID, p.ID)
		if err != nil {
			return err
		}
		b.ApplyResolution(bidmodels.BidStatus(p.Status))
		return bids.Update(ctx, b)

	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
}
