package ledger

import (
	"errors"
	"fmt"
)

// Server-assigned outcome codes carried in SyncOutcome.Error. These are the
// ledger's strings; the client only ever matches on them.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeStockShortage = "STOCK_SHORTAGE"
	ErrCodeDuplicate     = "DUPLICATE_SALE"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// ErrNotFound is returned when the ledger has no record of a sale
var ErrNotFound = errors.New("ledger: sale not found")

// ErrUnauthorized is returned on a 401-class response; the caller must
// invalidate the current session.
var ErrUnauthorized = errors.New("ledger: unauthorized")

// TransportError wraps failures where no response reached the server.
// The whole batch call is retryable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ledger transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a non-auth HTTP error response from the ledger
type ServerError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("ledger returned HTTP %d during %s: %s", e.StatusCode, e.Op, e.Body)
}

// MalformedResponseError is returned when a ledger response is missing a
// required field. Missing required fields are never silently defaulted.
type MalformedResponseError struct {
	Op     string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed ledger response during %s: %s", e.Op, e.Reason)
}

// SyncOutcome is the ledger's verdict on one submitted sale
type SyncOutcome struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Folio   string `json:"folio,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// SyncResult is the per-batch response of POST /sales/sync
type SyncResult struct {
	Synced         int           `json:"synced"`
	ReviewRequired int           `json:"reviewRequired"`
	Results        []SyncOutcome `json:"results"`
}

// Validate checks the response at the boundary
func (r *SyncResult) Validate() error {
	for i := range r.Results {
		out := &r.Results[i]
		if out.ID == "" {
			return fmt.Errorf("results[%d] is missing id", i)
		}
		if out.Status == "" {
			return fmt.Errorf("result for %s is missing status", out.ID)
		}
	}
	return nil
}

// RemoteLineItem is the ledger's canonical view of a sale line
type RemoteLineItem struct {
	ID            uint     `json:"id"`
	ProductID     string   `json:"productId"`
	UnitCode      string   `json:"unitCode"`
	UnitFactor    float64  `json:"unitFactor"`
	Qty           float64  `json:"qty"`
	QtyBase       float64  `json:"qtyBase"`
	UnitPrice     float64  `json:"unitPrice"`
	Discount      float64  `json:"discount"`
	LineTotal     float64  `json:"lineTotal"`
	StockShortage *float64 `json:"stockShortage,omitempty"`
}

// RemoteSale is the ledger's canonical view of a sale, matched to local
// records by the client-generated uuid
type RemoteSale struct {
	UUID       string           `json:"uuid"`
	Status     string           `json:"status"`
	Folio      string           `json:"folio,omitempty"`
	SellerID   string           `json:"sellerId,omitempty"`
	Subtotal   float64          `json:"subtotal"`
	TaxTotal   float64          `json:"taxTotal"`
	GrandTotal float64          `json:"grandTotal"`
	Items      []RemoteLineItem `json:"items"`
}

// Validate checks required fields at the boundary
func (s *RemoteSale) Validate() error {
	if s.UUID == "" {
		return fmt.Errorf("sale is missing uuid")
	}
	if s.Status == "" {
		return fmt.Errorf("sale %s is missing status", s.UUID)
	}
	for i := range s.Items {
		if s.Items[i].ProductID == "" {
			return fmt.Errorf("sale %s items[%d] is missing productId", s.UUID, i)
		}
	}
	return nil
}
