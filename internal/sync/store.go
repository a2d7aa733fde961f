package sync

import (
	"errors"
	"fmt"
	"time"

	"github.com/ventamovil/posync/internal/database"
	"github.com/ventamovil/posync/internal/models"
	"gorm.io/gorm"
)

// GormSaleStore is the PostgreSQL-backed SaleStore. Records are indexed
// by id and by status; the seller scope is applied in memory over the
// status-indexed result set.
type GormSaleStore struct {
	db *database.DB
}

// NewGormSaleStore creates a SaleStore over the given database
func NewGormSaleStore(db *database.DB) *GormSaleStore {
	return &GormSaleStore{db: db}
}

// ByID loads a record with its line items
func (s *GormSaleStore) ByID(id string) (*models.OfflineSaleRecord, error) {
	var rec models.OfflineSaleRecord
	err := s.db.Preload("LineItems").Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sale %s: %w", id, err)
	}
	return &rec, nil
}

// ListByStatus returns records in any of the given statuses, scoped to a
// seller. An empty sellerID disables the scope (reviewer reads only).
func (s *GormSaleStore) ListByStatus(sellerID string, statuses ...models.SaleStatus) ([]models.OfflineSaleRecord, error) {
	var all []models.OfflineSaleRecord
	err := s.db.Preload("LineItems").
		Where("status IN ?", statuses).
		Order("created_at ASC").
		Find(&all).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	if sellerID == "" {
		return all, nil
	}

	scoped := make([]models.OfflineSaleRecord, 0, len(all))
	for _, rec := range all {
		if rec.SellerID == sellerID {
			scoped = append(scoped, rec)
		}
	}
	return scoped, nil
}

// Save persists the record and any modified line items
func (s *GormSaleStore) Save(rec *models.OfflineSaleRecord) error {
	if err := s.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(rec).Error; err != nil {
		return fmt.Errorf("failed to save sale %s: %w", rec.ID, err)
	}
	return nil
}

// Overwrite replaces the record and its entire line item set. Used when
// the ledger's canonical copy supersedes the local one.
func (s *GormSaleStore) Overwrite(rec *models.OfflineSaleRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sale_id = ?", rec.ID).Delete(&models.SaleLineItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear line items for %s: %w", rec.ID, err)
		}
		for i := range rec.LineItems {
			rec.LineItems[i].ID = 0
			rec.LineItems[i].SaleID = rec.ID
		}
		if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(rec).Error; err != nil {
			return fmt.Errorf("failed to overwrite sale %s: %w", rec.ID, err)
		}
		return nil
	})
}

// Delete removes a record and its line items. Only reconciliation may
// call this; a failed sync never deletes.
func (s *GormSaleStore) Delete(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sale_id = ?", id).Delete(&models.SaleLineItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete line items for %s: %w", id, err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.OfflineSaleRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete sale %s: %w", id, err)
		}
		return nil
	})
}

// CountPending counts the seller's records awaiting attention
func (s *GormSaleStore) CountPending(sellerID string) (int64, error) {
	recs, err := s.ListByStatus(sellerID, models.SaleStatusPendingSync, models.SaleStatusReviewRequired)
	if err != nil {
		return 0, err
	}
	return int64(len(recs)), nil
}

// RecordRun upserts the sync metadata row for a protocol run
func (s *GormSaleStore) RecordRun(sellerID, operation, status string, affected int, errMsg string) error {
	now := time.Now()
	meta := models.SyncMetadata{
		SellerID:        sellerID,
		Operation:       operation,
		LastRunAt:       &now,
		LastStatus:      status,
		RecordsAffected: affected,
	}
	if errMsg != "" {
		meta.ErrorMessage = &errMsg
	}
	return s.db.Where("seller_id = ? AND operation = ?", sellerID, operation).
		Assign(meta).
		FirstOrCreate(&meta).Error
}
