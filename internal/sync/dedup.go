package sync

import (
	"context"
	"errors"
	"log"

	"github.com/ventamovil/posync/internal/ledger"
	"github.com/ventamovil/posync/internal/models"
	"github.com/ventamovil/posync/internal/session"
)

// dedupPass corrects sales wrongly stuck in a duplicate-rejection state.
// A duplicate verdict usually means the original submission did land but
// its acknowledgment was lost; if the sale exists server-side the local
// record is healed to CONFIRMED. Every lookup is best-effort: individual
// failures are logged and skipped, never propagated.
func (e *SyncEngine) dedupPass(ctx context.Context, sess *session.Session) (*DedupReport, error) {
	if err := sess.Valid(); err != nil {
		return nil, err
	}

	records, err := e.store.ListByStatus(sess.SellerID, models.SaleStatusReviewRequired, models.SaleStatusConfirmed)
	if err != nil {
		return nil, err
	}

	report := &DedupReport{}
	for i := range records {
		rec := &records[i]
		if !rec.HasDuplicateError() {
			continue
		}

		// Stale-error cleanup: already confirmed, the duplicate note
		// is leftover noise.
		if rec.Status == models.SaleStatusConfirmed {
			rec.LastError = ""
			rec.ErrorDetail = nil
			if err := e.store.Save(rec); err != nil {
				log.Printf("⚠️ Failed to clear stale duplicate error on %s: %v", rec.ID, err)
				continue
			}
			report.Cleaned++
			continue
		}

		remote := e.lookupRemote(ctx, sess, rec)
		if remote == nil {
			continue
		}

		if err := e.applyCanonical(rec, remote); err != nil {
			log.Printf("⚠️ Failed to heal duplicate sale %s: %v", rec.ID, err)
			continue
		}
		report.Healed++
		log.Printf("🩹 Sale %s was a false duplicate, healed to CONFIRMED (folio %s)", rec.ID, rec.Folio)
		e.events.BroadcastEvent("sale_confirmed", map[string]interface{}{
			"uuid":  rec.ID,
			"folio": rec.Folio,
		})
	}

	if report.Healed > 0 || report.Cleaned > 0 {
		e.recordRun(sess.SellerID, "dedup", "success", report.Healed+report.Cleaned, nil)
	}
	return report, nil
}

// lookupRemote locates the server-side sale by folio when known,
// falling back to the client-generated id. Nil means not found or a
// lookup failure, both of which the guard skips.
func (e *SyncEngine) lookupRemote(ctx context.Context, sess *session.Session, rec *models.OfflineSaleRecord) *ledger.RemoteSale {
	if rec.Folio != "" {
		remote, err := e.ledger.SaleByFolio(ctx, sess, rec.Folio)
		if err == nil {
			return remote
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			log.Printf("⚠️ Dedup lookup by folio %s failed, skipping: %v", rec.Folio, err)
			return nil
		}
	}

	remote, err := e.ledger.SaleByUUID(ctx, sess, rec.ID)
	if err != nil {
		if !errors.Is(err, ledger.ErrNotFound) {
			log.Printf("⚠️ Dedup lookup by uuid %s failed, skipping: %v", rec.ID, err)
		}
		return nil
	}
	return remote
}
