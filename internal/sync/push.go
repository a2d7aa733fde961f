package sync

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/ventamovil/posync/internal/ledger"
	"github.com/ventamovil/posync/internal/models"
	"github.com/ventamovil/posync/internal/session"
)

// pushPending submits the seller's PENDING_SYNC and REVIEW_REQUIRED
// records as a single batch. Outcomes are applied independently per
// record; a transport failure aborts the whole call without mutating
// anything.
func (e *SyncEngine) pushPending(ctx context.Context, sess *session.Session) (*ledger.SyncResult, error) {
	if err := sess.Valid(); err != nil {
		return nil, err
	}

	records, err := e.store.ListByStatus(sess.SellerID, models.SaleStatusPendingSync, models.SaleStatusReviewRequired)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &ledger.SyncResult{Results: []ledger.SyncOutcome{}}, nil
	}

	log.Printf("🔄 Pushing %d offline sales to ledger...", len(records))
	e.events.BroadcastEvent("sync_started", map[string]interface{}{"count": len(records)})

	result, err := e.ledger.PushSales(ctx, sess, records)
	if err != nil {
		if errors.Is(err, ledger.ErrUnauthorized) {
			e.invalidateSession(sess)
			e.recordRun(sess.SellerID, "push", "auth_failed", 0, err)
			return nil, &session.AuthenticationError{Reason: "ledger rejected token"}
		}
		// Transport and server failures leave every record untouched;
		// the caller retries the whole batch later.
		e.recordRun(sess.SellerID, "push", "failed", 0, err)
		return nil, err
	}

	for _, outcome := range result.Results {
		e.applyOutcome(ctx, sess, outcome)
	}

	// Advisory cleanup: a failure here is never a sync failure
	if report, err := e.dedupPass(ctx, sess); err != nil {
		log.Printf("⚠️ Post-push dedup pass failed (ignored): %v", err)
	} else if report.Healed > 0 {
		log.Printf("🩹 Post-push dedup healed %d false duplicates", report.Healed)
	}

	e.recordRun(sess.SellerID, "push", "success", result.Synced, nil)
	e.events.BroadcastEvent("sync_finished", result)
	log.Printf("✅ Push complete: %d confirmed, %d need review", result.Synced, result.ReviewRequired)
	return result, nil
}

// applyOutcome applies one per-record verdict via read-modify-write.
// Errors on a single record are logged and absorbed; they never block
// the rest of the batch.
func (e *SyncEngine) applyOutcome(ctx context.Context, sess *session.Session, outcome ledger.SyncOutcome) {
	rec, err := e.store.ByID(outcome.ID)
	if err != nil {
		log.Printf("⚠️ Outcome for unknown sale %s ignored: %v", outcome.ID, err)
		return
	}

	switch models.SaleStatus(outcome.Status) {
	case models.SaleStatusConfirmed:
		e.confirmRecord(ctx, sess, rec, outcome.Folio)

	case models.SaleStatusReviewRequired:
		rec.Status = models.SaleStatusReviewRequired
		rec.LastError = formatOutcomeError(outcome)
		rec.ErrorDetail = outcomeDetail(outcome)
		rec.RetryCount++
		save := e.store.Save
		if outcome.Error == ledger.ErrCodeStockShortage {
			// The ledger annotates the short lines with stockShortage
			// (qtyBase minus available stock); pull its copy so the
			// reviewer sees which line is short and by how much.
			if remote, err := e.ledger.SaleByUUID(ctx, sess, rec.ID); err != nil {
				log.Printf("⚠️ Shortage detail fetch for sale %s failed: %v", rec.ID, err)
			} else {
				rec.LineItems = remoteLineItems(rec.ID, remote.Items)
				save = e.store.Overwrite
			}
		}
		if err := save(rec); err != nil {
			log.Printf("⚠️ Failed to mark sale %s for review: %v", rec.ID, err)
			return
		}
		e.events.BroadcastEvent("review_required", map[string]interface{}{
			"uuid":  rec.ID,
			"error": rec.LastError,
		})

	default:
		log.Printf("⚠️ Unexpected outcome status %q for sale %s", outcome.Status, outcome.ID)
	}
}

// confirmRecord finishes a confirmed sale. The canonical copy is fetched
// by folio in a second round trip; when that fetch fails the record is
// still confirmed with the folio alone and healed later by
// reconciliation.
func (e *SyncEngine) confirmRecord(ctx context.Context, sess *session.Session, rec *models.OfflineSaleRecord, folio string) {
	canonical, err := e.ledger.SaleByFolio(ctx, sess, folio)
	if err != nil {
		log.Printf("⚠️ Canonical fetch for folio %s failed, confirming degraded: %v", folio, err)
		now := time.Now()
		rec.Status = models.SaleStatusConfirmed
		rec.Folio = folio
		rec.LastError = ""
		rec.ErrorDetail = nil
		rec.SyncedAt = &now
		if err := e.store.Save(rec); err != nil {
			log.Printf("⚠️ Failed to confirm sale %s: %v", rec.ID, err)
		}
		return
	}

	if err := e.applyCanonical(rec, canonical); err != nil {
		log.Printf("⚠️ Failed to apply canonical copy to sale %s: %v", rec.ID, err)
		return
	}
	e.events.BroadcastEvent("sale_confirmed", map[string]interface{}{
		"uuid":  rec.ID,
		"folio": rec.Folio,
	})
}

// applyCanonical overwrites a local record with the ledger's copy:
// status, folio, totals and the full line item set.
func (e *SyncEngine) applyCanonical(rec *models.OfflineSaleRecord, remote *ledger.RemoteSale) error {
	rec.Status = models.SaleStatus(remote.Status)
	rec.Folio = remote.Folio
	rec.Subtotal = remote.Subtotal
	rec.TaxTotal = remote.TaxTotal
	rec.GrandTotal = remote.GrandTotal
	rec.LineItems = remoteLineItems(rec.ID, remote.Items)
	rec.LastError = ""
	rec.ErrorDetail = nil
	if rec.Status == models.SaleStatusConfirmed && rec.SyncedAt == nil {
		now := time.Now()
		rec.SyncedAt = &now
	}
	return e.store.Overwrite(rec)
}

// remoteLineItems converts the ledger's line view into local rows
func remoteLineItems(saleID string, items []ledger.RemoteLineItem) []models.SaleLineItem {
	lines := make([]models.SaleLineItem, 0, len(items))
	for _, it := range items {
		factor := it.UnitFactor
		if factor == 0 {
			factor = 1
		}
		lines = append(lines, models.SaleLineItem{
			SaleID:        saleID,
			ProductID:     it.ProductID,
			UnitCode:      it.UnitCode,
			UnitFactor:    factor,
			Qty:           it.Qty,
			QtyBase:       it.QtyBase,
			UnitPrice:     it.UnitPrice,
			Discount:      it.Discount,
			LineTotal:     it.LineTotal,
			StockShortage: it.StockShortage,
		})
	}
	return lines
}

// formatOutcomeError builds the lastError string from a rejection
func formatOutcomeError(outcome ledger.SyncOutcome) string {
	if outcome.Error == "" {
		return outcome.Message
	}
	if outcome.Message == "" {
		return outcome.Error
	}
	return outcome.Error + ": " + outcome.Message
}

// outcomeDetail keeps the structured rejection for the reviewer surface
func outcomeDetail(outcome ledger.SyncOutcome) []byte {
	detail, err := json.Marshal(map[string]string{
		"code":    outcome.Error,
		"message": outcome.Message,
	})
	if err != nil {
		return nil
	}
	return detail
}

// recordRun persists sync metadata; failures are only logged
func (e *SyncEngine) recordRun(sellerID, operation, status string, affected int, runErr error) {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	if err := e.store.RecordRun(sellerID, operation, status, affected, msg); err != nil {
		log.Printf("⚠️ Failed to record %s metadata: %v", operation, err)
	}
}
