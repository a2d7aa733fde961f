package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/ventamovil/posync/internal/ledger"
	"github.com/ventamovil/posync/internal/models"
	"github.com/ventamovil/posync/internal/session"
)

func TestResolveConflictSubmitsToLedger(t *testing.T) {
	store := newFakeStore(reviewSale("a1", "seller-1", "STOCK_SHORTAGE: only 1 left"))
	var got models.ConflictResolutionAction
	api := &fakeLedger{
		resolveFn: func(action models.ConflictResolutionAction) error {
			got = action
			return nil
		},
	}
	e := newTestEngine(store, api)

	action := models.ConflictResolutionAction{
		Action: models.ConflictActionEditQuantities,
		SaleID: "a1",
		Items:  []models.ConflictItemEdit{{ID: 7, NewQty: 1, NewQtyBase: 1}},
	}
	if err := e.ResolveConflict(context.Background(), sellerSession(), action); err != nil {
		t.Fatalf("ResolveConflict failed: %v", err)
	}
	if got.SaleID != "a1" || got.Action != models.ConflictActionEditQuantities {
		t.Errorf("submitted action mismatch: %+v", got)
	}

	// The local record only changes through the next reconciliation poll
	rec := store.mustGet(t, "a1")
	if rec.Status != models.SaleStatusReviewRequired {
		t.Errorf("local record must stay untouched, got %s", rec.Status)
	}
}

func TestResolveConflictCancel(t *testing.T) {
	store := newFakeStore(reviewSale("a1", "seller-1", "VALIDATION_ERROR: bad line"))
	api := &fakeLedger{}
	e := newTestEngine(store, api)

	action := models.ConflictResolutionAction{Action: models.ConflictActionCancel, SaleID: "a1"}
	if err := e.ResolveConflict(context.Background(), sellerSession(), action); err != nil {
		t.Fatalf("ResolveConflict failed: %v", err)
	}
	if api.resolveCalls != 1 {
		t.Errorf("resolveCalls mismatch: got %d, want 1", api.resolveCalls)
	}
}

func TestResolveConflictRejectsForeignSale(t *testing.T) {
	store := newFakeStore(reviewSale("a1", "seller-2", "VALIDATION_ERROR: bad line"))
	api := &fakeLedger{}
	e := newTestEngine(store, api)

	action := models.ConflictResolutionAction{Action: models.ConflictActionCancel, SaleID: "a1"}
	err := e.ResolveConflict(context.Background(), sellerSession(), action)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if api.resolveCalls != 0 {
		t.Error("forbidden resolution must not reach the ledger")
	}
}

func TestResolveConflictReviewerMayResolveForeignSale(t *testing.T) {
	store := newFakeStore(reviewSale("a1", "seller-2", "VALIDATION_ERROR: bad line"))
	api := &fakeLedger{}
	e := newTestEngine(store, api)

	action := models.ConflictResolutionAction{Action: models.ConflictActionCancel, SaleID: "a1"}
	if err := e.ResolveConflict(context.Background(), reviewerSession(), action); err != nil {
		t.Fatalf("reviewer resolution failed: %v", err)
	}
}

func TestResolveConflictRejectsWrongStatus(t *testing.T) {
	store := newFakeStore(confirmedSale("a1", "seller-1", "F-001"))
	api := &fakeLedger{}
	e := newTestEngine(store, api)

	action := models.ConflictResolutionAction{Action: models.ConflictActionCancel, SaleID: "a1"}
	err := e.ResolveConflict(context.Background(), sellerSession(), action)
	if !errors.Is(err, ErrInvalidResolution) {
		t.Fatalf("expected ErrInvalidResolution, got %v", err)
	}
}

func TestResolveConflictValidatesQuantityEdits(t *testing.T) {
	store := newFakeStore(reviewSale("a1", "seller-1", "STOCK_SHORTAGE: only 1 left"))
	api := &fakeLedger{}
	e := newTestEngine(store, api)

	// line item 7 has unit factor 1, so newQtyBase 12 is inconsistent
	action := models.ConflictResolutionAction{
		Action: models.ConflictActionEditQuantities,
		SaleID: "a1",
		Items:  []models.ConflictItemEdit{{ID: 7, NewQty: 1, NewQtyBase: 12}},
	}
	err := e.ResolveConflict(context.Background(), sellerSession(), action)
	if !errors.Is(err, ErrInvalidResolution) {
		t.Fatalf("expected ErrInvalidResolution, got %v", err)
	}
	if api.resolveCalls != 0 {
		t.Error("invalid resolution must not reach the ledger")
	}
}

func TestResolveConflictUncachedSaleStillSubmits(t *testing.T) {
	store := newFakeStore()
	api := &fakeLedger{}
	e := newTestEngine(store, api)

	action := models.ConflictResolutionAction{Action: models.ConflictActionCancel, SaleID: "zz"}
	if err := e.ResolveConflict(context.Background(), sellerSession(), action); err != nil {
		t.Fatalf("resolution for an uncached sale failed: %v", err)
	}
	if api.resolveCalls != 1 {
		t.Errorf("resolveCalls mismatch: got %d, want 1", api.resolveCalls)
	}
}

func TestResolveConflictUnauthorizedInvalidatesSession(t *testing.T) {
	store := newFakeStore(reviewSale("a1", "seller-1", "VALIDATION_ERROR: bad line"))
	api := &fakeLedger{
		resolveFn: func(action models.ConflictResolutionAction) error {
			return ledger.ErrUnauthorized
		},
	}
	e := newTestEngine(store, api)

	sess := sellerSession()
	e.SetSession(sess)

	action := models.ConflictResolutionAction{Action: models.ConflictActionCancel, SaleID: "a1"}
	err := e.ResolveConflict(context.Background(), sess, action)
	if !session.IsAuthenticationError(err) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if e.CurrentSession() != nil {
		t.Error("session should be invalidated after a 401")
	}
}
