package sync

import (
	"context"
	"errors"
	"log"
	"math"

	"github.com/ventamovil/posync/internal/ledger"
	"github.com/ventamovil/posync/internal/models"
	"github.com/ventamovil/posync/internal/session"
)

// reconcile asks the ledger for its view of every already-submitted
// record and repairs local drift. Read-then-write only; it never calls
// the push protocol.
func (e *SyncEngine) reconcile(ctx context.Context, sess *session.Session, targetSellerID string) (*ReconcileReport, error) {
	if err := sess.Valid(); err != nil {
		return nil, err
	}

	sellerID := sess.SellerID
	remoteQuery := ""
	if targetSellerID != "" && targetSellerID != sess.SellerID {
		if !sess.IsReviewer() {
			return nil, ErrForbidden
		}
		sellerID = targetSellerID
		remoteQuery = targetSellerID
	}

	records, err := e.store.ListByStatus(sellerID, models.SaleStatusReviewRequired, models.SaleStatusConfirmed)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &ReconcileReport{}, nil
	}

	remote, err := e.ledger.OfflineStatus(ctx, sess, remoteQuery)
	if err != nil {
		if errors.Is(err, ledger.ErrUnauthorized) {
			e.invalidateSession(sess)
			e.recordRun(sellerID, "poll", "auth_failed", 0, err)
			return nil, &session.AuthenticationError{Reason: "ledger rejected token"}
		}
		e.recordRun(sellerID, "poll", "failed", 0, err)
		return nil, err
	}

	byUUID := make(map[string]*ledger.RemoteSale, len(remote))
	for i := range remote {
		byUUID[remote[i].UUID] = &remote[i]
	}

	report := &ReconcileReport{}
	for i := range records {
		rec := &records[i]
		rs, found := byUUID[rec.ID]

		switch {
		case !found:
			// The server no longer recognizes this sale: a reviewer
			// resolved it out-of-band. Remove the local record.
			if err := e.store.Delete(rec.ID); err != nil {
				log.Printf("⚠️ Failed to remove resolved sale %s: %v", rec.ID, err)
				continue
			}
			report.Removed++
			log.Printf("🗑️  Sale %s no longer on ledger, removed locally", rec.ID)
			e.events.BroadcastEvent("sale_removed", map[string]interface{}{"uuid": rec.ID})

		case rs.Status != string(rec.Status):
			// Server-side resolution changed the status: take the
			// server's copy wholesale.
			oldStatus := rec.Status
			if err := e.applyCanonical(rec, rs); err != nil {
				log.Printf("⚠️ Failed to apply server status to sale %s: %v", rec.ID, err)
				continue
			}
			report.Updated++
			log.Printf("🔄 Sale %s: status %s -> %s", rec.ID, oldStatus, rs.Status)
			e.events.BroadcastEvent("sale_updated", map[string]interface{}{
				"uuid":   rec.ID,
				"status": rs.Status,
			})

		case math.Abs(rs.GrandTotal-rec.GrandTotal) > CurrencyEpsilon:
			// Same status, materially different totals: heal amounts
			// and line items, leave status and error state untouched.
			rec.Subtotal = rs.Subtotal
			rec.TaxTotal = rs.TaxTotal
			rec.GrandTotal = rs.GrandTotal
			rec.LineItems = remoteLineItems(rec.ID, rs.Items)
			if err := e.store.Overwrite(rec); err != nil {
				log.Printf("⚠️ Failed to heal totals for sale %s: %v", rec.ID, err)
				continue
			}
			report.Updated++
			log.Printf("🔄 Sale %s: totals healed to %.2f", rec.ID, rs.GrandTotal)
		}
	}

	e.recordRun(sellerID, "poll", "success", report.Updated+report.Removed, nil)
	return report, nil
}
