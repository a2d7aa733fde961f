package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// SaleStatus defines the states an offline sale record may occupy
type SaleStatus string

const (
	SaleStatusPendingSync    SaleStatus = "PENDING_SYNC"    // Captured locally, not yet acknowledged by the ledger
	SaleStatusConfirmed      SaleStatus = "CONFIRMED"       // Accepted by the ledger, folio assigned
	SaleStatusReviewRequired SaleStatus = "REVIEW_REQUIRED" // Rejected by the ledger, needs attention
	SaleStatusCancelled      SaleStatus = "CANCELLED"       // Terminated server-side, only ever observed via reconciliation
)

// CanTransition reports whether a local protocol step may move a record
// from its current status to the given one. Reconciliation overwrites are
// server-authoritative and bypass this check.
func (s SaleStatus) CanTransition(to SaleStatus) bool {
	switch s {
	case SaleStatusPendingSync:
		return to == SaleStatusConfirmed || to == SaleStatusReviewRequired
	case SaleStatusReviewRequired:
		// Retry by seller/reviewer, or heal by the deduplication guard
		return to == SaleStatusPendingSync || to == SaleStatusConfirmed
	default:
		// CONFIRMED and CANCELLED are terminal locally
		return false
	}
}

// QtyEpsilon bounds floating point drift in the qtyBase = qty * unitFactor relation
const QtyEpsilon = 1e-6

// OfflineSaleRecord is a sale captured while disconnected from the ledger.
// The client-generated ID doubles as the idempotency key for submissions.
// Standardized: Go (PascalCase) -> DB (snake_case) -> JSON (camelCase)
type OfflineSaleRecord struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"uuid"`
	SellerID    string     `gorm:"type:uuid;not null;index" json:"sellerId"`
	CustomerID  string     `gorm:"type:varchar(64)" json:"customerId,omitempty"`
	WarehouseID string     `gorm:"type:varchar(64)" json:"warehouseId,omitempty"`
	Status      SaleStatus `gorm:"type:varchar(20);not null;default:'PENDING_SYNC';index" json:"status"`
	Folio       string     `gorm:"type:varchar(50);index" json:"folio,omitempty"`

	Subtotal   float64 `json:"subtotal"`
	TaxTotal   float64 `json:"taxTotal"`
	GrandTotal float64 `json:"grandTotal"`

	LastError   string         `gorm:"type:text" json:"lastError,omitempty"`
	ErrorDetail datatypes.JSON `json:"errorDetail,omitempty"`
	RetryCount  int            `gorm:"default:0" json:"retryCount"`

	LineItems []SaleLineItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"lineItems"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	SyncedAt  *time.Time `json:"syncedAt,omitempty"`
}

// TableName specifies the table name for OfflineSaleRecord
func (OfflineSaleRecord) TableName() string {
	return "offline_sale_records"
}

// SaleLineItem is a single product line of an offline sale.
// Quantities are convertible to the product's base unit via UnitFactor.
type SaleLineItem struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	SaleID string `gorm:"type:uuid;not null;index" json:"-"`

	ProductID  string  `gorm:"type:varchar(64);not null" json:"productId"`
	UnitCode   string  `gorm:"type:varchar(10)" json:"unitCode"`
	UnitFactor float64 `gorm:"default:1" json:"unitFactor"`
	Qty        float64 `json:"qty"`
	QtyBase    float64 `json:"qtyBase"`
	UnitPrice  float64 `json:"unitPrice"`
	Discount   float64 `json:"discount"`
	LineTotal  float64 `json:"lineTotal"`

	// Advisory hints, never authoritative
	AvailableStockHint *float64 `json:"availableStockHint,omitempty"`
	StockShortage      *float64 `json:"stockShortage,omitempty"`
}

// TableName specifies the table name for SaleLineItem
func (SaleLineItem) TableName() string {
	return "sale_line_items"
}

// Recompute derives QtyBase and LineTotal from the editable fields
func (li *SaleLineItem) Recompute() {
	if li.UnitFactor == 0 {
		li.UnitFactor = 1
	}
	li.QtyBase = li.Qty * li.UnitFactor
	li.LineTotal = li.Qty*li.UnitPrice - li.Discount
}

// Validate checks the line item invariants
func (li *SaleLineItem) Validate() error {
	if li.ProductID == "" {
		return fmt.Errorf("line item is missing productId")
	}
	if li.Qty <= 0 {
		return fmt.Errorf("line item %s: qty must be positive", li.ProductID)
	}
	if li.UnitFactor <= 0 {
		return fmt.Errorf("line item %s: unitFactor must be positive", li.ProductID)
	}
	if li.UnitPrice < 0 || li.Discount < 0 {
		return fmt.Errorf("line item %s: negative price or discount", li.ProductID)
	}
	if math.Abs(li.QtyBase-li.Qty*li.UnitFactor) > QtyEpsilon {
		return fmt.Errorf("line item %s: qtyBase %.6f does not match qty %.6f x unitFactor %.6f",
			li.ProductID, li.QtyBase, li.Qty, li.UnitFactor)
	}
	expected := li.Qty*li.UnitPrice - li.Discount
	if math.Abs(li.LineTotal-expected) > QtyEpsilon {
		return fmt.Errorf("line item %s: lineTotal %.6f does not match qty x unitPrice - discount", li.ProductID, li.LineTotal)
	}
	return nil
}

// RecomputeTotals rebuilds sale totals from the line items.
// Must be called whenever line items change.
func (r *OfflineSaleRecord) RecomputeTotals(taxRate float64) {
	subtotal := 0.0
	for i := range r.LineItems {
		subtotal += r.LineItems[i].LineTotal
	}
	r.Subtotal = round2(subtotal)
	r.TaxTotal = round2(subtotal * taxRate)
	r.GrandTotal = round2(r.Subtotal + r.TaxTotal)
}

// Validate checks the record and all of its line items
func (r *OfflineSaleRecord) Validate() error {
	if r.SellerID == "" {
		return fmt.Errorf("sale is missing sellerId")
	}
	if len(r.LineItems) == 0 {
		return fmt.Errorf("sale has no line items")
	}
	for i := range r.LineItems {
		if err := r.LineItems[i].Validate(); err != nil {
			return err
		}
	}
	if math.Abs(r.GrandTotal-(r.Subtotal+r.TaxTotal)) > 0.01 {
		return fmt.Errorf("grandTotal %.2f does not equal subtotal %.2f + taxTotal %.2f", r.GrandTotal, r.Subtotal, r.TaxTotal)
	}
	return nil
}

// HasDuplicateError reports whether the last sync error classified this
// record as a duplicate submission
func (r *OfflineSaleRecord) HasDuplicateError() bool {
	return strings.Contains(strings.ToUpper(r.LastError), "DUPLICATE")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
