package models

import (
	"fmt"
	"math"
	"time"
)

// SyncMetadata tracks the last run of each sync protocol per seller
type SyncMetadata struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	SellerID        string     `gorm:"type:uuid;not null;uniqueIndex:idx_seller_op" json:"sellerId"`
	Operation       string     `gorm:"type:varchar(20);not null;uniqueIndex:idx_seller_op" json:"operation"` // push | poll | dedup
	LastRunAt       *time.Time `json:"lastRunAt"`
	LastStatus      string     `gorm:"type:varchar(20)" json:"lastStatus"`
	RecordsAffected int        `gorm:"default:0" json:"recordsAffected"`
	ErrorMessage    *string    `gorm:"type:text" json:"errorMessage,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TableName specifies the table name
func (SyncMetadata) TableName() string {
	return "sync_metadata"
}

// ConflictAction defines how a reviewer resolves a REVIEW_REQUIRED sale
type ConflictAction string

const (
	ConflictActionEditQuantities ConflictAction = "EDIT_QUANTITIES"
	ConflictActionCancel         ConflictAction = "CANCEL"
)

// ConflictItemEdit adjusts one line item of a sale under review
type ConflictItemEdit struct {
	ID         uint    `json:"id"`
	NewQty     float64 `json:"newQty"`
	NewQtyBase float64 `json:"newQtyBase"`
}

// ConflictResolutionAction is submitted against a server-side sale in review.
// Its effect is only ever observed locally through a later reconciliation poll.
type ConflictResolutionAction struct {
	Action ConflictAction     `json:"action"`
	SaleID string             `json:"saleId"`
	Items  []ConflictItemEdit `json:"items,omitempty"`
	Notes  string             `json:"notes,omitempty"`
}

// Validate checks the action shape. unitFactorOf resolves a line item id to
// its unit factor so the newQtyBase relation can be verified; it returns
// false for items that are not part of the sale.
func (a *ConflictResolutionAction) Validate(unitFactorOf func(itemID uint) (float64, bool)) error {
	if a.SaleID == "" {
		return fmt.Errorf("resolution is missing saleId")
	}
	switch a.Action {
	case ConflictActionCancel:
		return nil
	case ConflictActionEditQuantities:
		if len(a.Items) == 0 {
			return fmt.Errorf("EDIT_QUANTITIES requires at least one item")
		}
		for _, it := range a.Items {
			if it.NewQty <= 0 {
				return fmt.Errorf("item %d: newQty must be positive", it.ID)
			}
			factor, ok := unitFactorOf(it.ID)
			if !ok {
				return fmt.Errorf("item %d: not part of sale %s", it.ID, a.SaleID)
			}
			if math.Abs(it.NewQtyBase-it.NewQty*factor) > QtyEpsilon {
				return fmt.Errorf("item %d: newQtyBase %.6f does not match newQty %.6f x unitFactor %.6f",
					it.ID, it.NewQtyBase, it.NewQty, factor)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown resolution action: %s", a.Action)
	}
}
