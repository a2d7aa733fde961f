package models

import (
	"math"
	"testing"
)

func TestLineItemRecompute(t *testing.T) {
	li := SaleLineItem{
		ProductID:  "F-014",
		UnitCode:   "CJ",
		UnitFactor: 12,
		Qty:        2,
		UnitPrice:  95,
		Discount:   10,
	}
	li.Recompute()

	if li.QtyBase != 24 {
		t.Errorf("QtyBase mismatch: got %v, want 24", li.QtyBase)
	}
	if li.LineTotal != 180 {
		t.Errorf("LineTotal mismatch: got %v, want 180", li.LineTotal)
	}

	if err := li.Validate(); err != nil {
		t.Errorf("Recomputed line should validate: %v", err)
	}
}

func TestLineItemRecomputeDefaultsUnitFactor(t *testing.T) {
	li := SaleLineItem{ProductID: "F-001", Qty: 3, UnitPrice: 10}
	li.Recompute()

	if li.UnitFactor != 1 {
		t.Errorf("UnitFactor should default to 1, got %v", li.UnitFactor)
	}
	if li.QtyBase != 3 {
		t.Errorf("QtyBase mismatch: got %v, want 3", li.QtyBase)
	}
}

func TestLineItemValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		li   SaleLineItem
	}{
		{"missing product", SaleLineItem{Qty: 1, UnitFactor: 1, QtyBase: 1}},
		{"zero qty", SaleLineItem{ProductID: "A", Qty: 0, UnitFactor: 1}},
		{"negative discount", SaleLineItem{ProductID: "A", Qty: 1, UnitFactor: 1, QtyBase: 1, Discount: -1}},
		{"qtyBase drift", SaleLineItem{ProductID: "A", Qty: 2, UnitFactor: 12, QtyBase: 20}},
		{"lineTotal drift", SaleLineItem{ProductID: "A", Qty: 2, UnitFactor: 1, QtyBase: 2, UnitPrice: 10, LineTotal: 25}},
	}
	for _, tc := range cases {
		if err := tc.li.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestRecomputeTotals(t *testing.T) {
	rec := OfflineSaleRecord{
		SellerID: "seller-1",
		LineItems: []SaleLineItem{
			{ProductID: "F-001", UnitFactor: 1, Qty: 2, UnitPrice: 10},
			{ProductID: "B-203", UnitFactor: 1, Qty: 5, UnitPrice: 18.5, Discount: 4},
		},
	}
	for i := range rec.LineItems {
		rec.LineItems[i].Recompute()
	}
	rec.RecomputeTotals(0.16)

	// 20 + (92.5 - 4) = 108.50
	if rec.Subtotal != 108.50 {
		t.Errorf("Subtotal mismatch: got %v, want 108.50", rec.Subtotal)
	}
	if rec.TaxTotal != 17.36 {
		t.Errorf("TaxTotal mismatch: got %v, want 17.36", rec.TaxTotal)
	}
	if rec.GrandTotal != 125.86 {
		t.Errorf("GrandTotal mismatch: got %v, want 125.86", rec.GrandTotal)
	}

	if err := rec.Validate(); err != nil {
		t.Errorf("Recomputed record should validate: %v", err)
	}
}

func TestRecordValidateRejectsEmptySale(t *testing.T) {
	rec := OfflineSaleRecord{SellerID: "seller-1"}
	if err := rec.Validate(); err == nil {
		t.Error("expected error for sale without line items")
	}

	rec = OfflineSaleRecord{LineItems: []SaleLineItem{{ProductID: "A", Qty: 1, UnitFactor: 1, QtyBase: 1}}}
	if err := rec.Validate(); err == nil {
		t.Error("expected error for sale without sellerId")
	}
}

func TestRecordValidateTotalsRelation(t *testing.T) {
	rec := OfflineSaleRecord{
		SellerID:   "seller-1",
		Subtotal:   100,
		TaxTotal:   16,
		GrandTotal: 120, // off by 4
		LineItems:  []SaleLineItem{{ProductID: "A", Qty: 1, UnitFactor: 1, QtyBase: 1, UnitPrice: 100, LineTotal: 100}},
	}
	if err := rec.Validate(); err == nil {
		t.Error("expected error when grandTotal != subtotal + taxTotal")
	}

	rec.GrandTotal = 116
	if err := rec.Validate(); err != nil {
		t.Errorf("consistent totals should validate: %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to SaleStatus
		want     bool
	}{
		{SaleStatusPendingSync, SaleStatusConfirmed, true},
		{SaleStatusPendingSync, SaleStatusReviewRequired, true},
		{SaleStatusPendingSync, SaleStatusCancelled, false},
		{SaleStatusReviewRequired, SaleStatusPendingSync, true},
		{SaleStatusReviewRequired, SaleStatusConfirmed, true},
		{SaleStatusReviewRequired, SaleStatusCancelled, false},
		{SaleStatusConfirmed, SaleStatusPendingSync, false},
		{SaleStatusConfirmed, SaleStatusReviewRequired, false},
		{SaleStatusCancelled, SaleStatusPendingSync, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestHasDuplicateError(t *testing.T) {
	rec := OfflineSaleRecord{LastError: "DUPLICATE_SALE: folio F-001 already exists"}
	if !rec.HasDuplicateError() {
		t.Error("expected duplicate detection on DUPLICATE_SALE")
	}

	rec.LastError = "possible duplicate submission"
	if !rec.HasDuplicateError() {
		t.Error("duplicate matching should be case-insensitive")
	}

	rec.LastError = "STOCK_SHORTAGE: only 1 left"
	if rec.HasDuplicateError() {
		t.Error("stock shortage is not a duplicate error")
	}

	rec.LastError = ""
	if rec.HasDuplicateError() {
		t.Error("empty error is not a duplicate error")
	}
}

func TestConflictResolutionValidate(t *testing.T) {
	factors := func(itemID uint) (float64, bool) {
		if itemID == 7 {
			return 12, true
		}
		return 0, false
	}

	cancel := ConflictResolutionAction{Action: ConflictActionCancel, SaleID: "a1"}
	if err := cancel.Validate(factors); err != nil {
		t.Errorf("CANCEL should validate: %v", err)
	}

	missing := ConflictResolutionAction{Action: ConflictActionCancel}
	if err := missing.Validate(factors); err == nil {
		t.Error("expected error for missing saleId")
	}

	unknown := ConflictResolutionAction{Action: "SPLIT", SaleID: "a1"}
	if err := unknown.Validate(factors); err == nil {
		t.Error("expected error for unknown action")
	}

	empty := ConflictResolutionAction{Action: ConflictActionEditQuantities, SaleID: "a1"}
	if err := empty.Validate(factors); err == nil {
		t.Error("EDIT_QUANTITIES without items should fail")
	}

	foreign := ConflictResolutionAction{
		Action: ConflictActionEditQuantities,
		SaleID: "a1",
		Items:  []ConflictItemEdit{{ID: 99, NewQty: 1, NewQtyBase: 1}},
	}
	if err := foreign.Validate(factors); err == nil {
		t.Error("expected error for item outside the sale")
	}

	drift := ConflictResolutionAction{
		Action: ConflictActionEditQuantities,
		SaleID: "a1",
		Items:  []ConflictItemEdit{{ID: 7, NewQty: 2, NewQtyBase: 20}},
	}
	if err := drift.Validate(factors); err == nil {
		t.Error("expected error when newQtyBase violates the unit factor relation")
	}

	ok := ConflictResolutionAction{
		Action: ConflictActionEditQuantities,
		SaleID: "a1",
		Items:  []ConflictItemEdit{{ID: 7, NewQty: 2, NewQtyBase: 24}},
	}
	if err := ok.Validate(factors); err != nil {
		t.Errorf("consistent edit should validate: %v", err)
	}
}

func TestRound2(t *testing.T) {
	if got := round2(17.356); math.Abs(got-17.36) > 1e-9 {
		t.Errorf("round2(17.356): got %v, want 17.36", got)
	}
	if got := round2(17.354); math.Abs(got-17.35) > 1e-9 {
		t.Errorf("round2(17.354): got %v, want 17.35", got)
	}
}
