package sync

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ventamovil/posync/internal/ledger"
	"github.com/ventamovil/posync/internal/models"
	"github.com/ventamovil/posync/internal/session"
)

// ResolveConflict submits a reviewer's resolution for a REVIEW_REQUIRED
// sale to the ledger. The local record is deliberately left untouched:
// the resolution's effect only becomes visible through the next
// reconciliation poll.
func (e *SyncEngine) ResolveConflict(ctx context.Context, sess *session.Session, action models.ConflictResolutionAction) error {
	if err := sess.Valid(); err != nil {
		return err
	}

	rec, err := e.store.ByID(action.SaleID)
	if err != nil && !errors.Is(err, ErrSaleNotFound) {
		return err
	}
	if rec != nil {
		if rec.SellerID != sess.SellerID && !sess.IsReviewer() {
			return ErrForbidden
		}
		if rec.Status != models.SaleStatusReviewRequired {
			return fmt.Errorf("%w: sale %s is %s, only REVIEW_REQUIRED sales can be resolved", ErrInvalidResolution, rec.ID, rec.Status)
		}
	}

	if err := action.Validate(lineItemFactors(rec)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResolution, err)
	}

	if err := e.ledger.ResolveConflict(ctx, sess, action); err != nil {
		if errors.Is(err, ledger.ErrUnauthorized) {
			e.invalidateSession(sess)
			return &session.AuthenticationError{Reason: "ledger rejected token"}
		}
		return err
	}

	log.Printf("📝 Resolution %s submitted for sale %s, awaiting next poll", action.Action, action.SaleID)
	e.events.BroadcastEvent("resolution_submitted", map[string]interface{}{
		"uuid":   action.SaleID,
		"action": action.Action,
	})
	return nil
}

// lineItemFactors builds the unit factor lookup for validating quantity
// edits. When the sale is not cached locally the relation cannot be
// checked and every item resolves with factor 1.
func lineItemFactors(rec *models.OfflineSaleRecord) func(itemID uint) (float64, bool) {
	if rec == nil {
		return func(uint) (float64, bool) { return 1, true }
	}
	factors := make(map[uint]float64, len(rec.LineItems))
	for _, li := range rec.LineItems {
		factors[li.ID] = li.UnitFactor
	}
	return func(itemID uint) (float64, bool) {
		f, ok := factors[itemID]
		return f, ok
	}
}
