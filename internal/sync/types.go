package sync

import (
	"context"
	"errors"

	"github.com/ventamovil/posync/internal/ledger"
	"github.com/ventamovil/posync/internal/models"
	"github.com/ventamovil/posync/internal/session"
)

// CurrencyEpsilon is the tolerance used when comparing money amounts
// between the local record and the ledger's canonical copy.
const CurrencyEpsilon = 0.01

// ErrSyncInProgress is returned when a protocol is invoked while another
// cycle for this agent is still running. The call is a no-op: no record
// is read or mutated.
var ErrSyncInProgress = errors.New("sync already in progress")

// ErrSaleNotFound is returned by SaleStore lookups
var ErrSaleNotFound = errors.New("offline sale not found")

// ErrForbidden is returned when a non-reviewer acts on another seller's records
var ErrForbidden = errors.New("only reviewers may act on another seller's sales")

// ErrInvalidResolution wraps conflict resolution actions that fail validation
var ErrInvalidResolution = errors.New("invalid resolution")

// SaleStore is the durable local store of offline sale records.
// Every query is scoped to a seller; mutations are read-modify-write.
type SaleStore interface {
	ByID(id string) (*models.OfflineSaleRecord, error)
	// ListByStatus returns the seller's records in any of the given
	// statuses. An empty sellerID returns all sellers (reviewer reads).
	ListByStatus(sellerID string, statuses ...models.SaleStatus) ([]models.OfflineSaleRecord, error)
	Save(rec *models.OfflineSaleRecord) error
	// Overwrite replaces the record and its full line item set with the
	// server's canonical copy.
	Overwrite(rec *models.OfflineSaleRecord) error
	Delete(id string) error
	CountPending(sellerID string) (int64, error)
	RecordRun(sellerID, operation, status string, affected int, errMsg string) error
}

// LedgerAPI is the slice of the ledger client the engine depends on
type LedgerAPI interface {
	PushSales(ctx context.Context, sess *session.Session, sales []models.OfflineSaleRecord) (*ledger.SyncResult, error)
	OfflineStatus(ctx context.Context, sess *session.Session, sellerID string) ([]ledger.RemoteSale, error)
	SaleByUUID(ctx context.Context, sess *session.Session, id string) (*ledger.RemoteSale, error)
	SaleByFolio(ctx context.Context, sess *session.Session, folio string) (*ledger.RemoteSale, error)
	ResolveConflict(ctx context.Context, sess *session.Session, action models.ConflictResolutionAction) error
}

// EventSink receives sync lifecycle events for the local UI feed
type EventSink interface {
	BroadcastEvent(event string, payload interface{})
}

// noopSink is used when no UI feed is attached
type noopSink struct{}

func (noopSink) BroadcastEvent(string, interface{}) {}

// ReconcileReport summarizes one reconciliation poll
type ReconcileReport struct {
	Updated int `json:"updated"`
	Removed int `json:"removed"`
}

// DedupReport summarizes one deduplication pass
type DedupReport struct {
	Healed  int `json:"healed"`
	Cleaned int `json:"cleaned"`
}
