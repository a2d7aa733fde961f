package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ventamovil/posync/internal/middleware"
	"github.com/ventamovil/posync/internal/models"
	"github.com/ventamovil/posync/internal/services/receipt"
	"github.com/ventamovil/posync/internal/sync"
)

// CaptureSaleRequest is a sale submitted by the terminal UI. The uuid is
// optional; the agent mints one when the client does not.
type CaptureSaleRequest struct {
	UUID        string                `json:"uuid"`
	CustomerID  string                `json:"customerId"`
	WarehouseID string                `json:"warehouseId"`
	LineItems   []models.SaleLineItem `json:"lineItems"`
}

// createSale captures a sale locally in PENDING_SYNC, to be pushed on the
// next sync cycle
func (r *Router) createSale(w http.ResponseWriter, req *http.Request) {
	sess := middleware.SessionFrom(req.Context())

	var capture CaptureSaleRequest
	if err := json.NewDecoder(req.Body).Decode(&capture); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	id := capture.UUID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusBadRequest, "uuid is not a valid UUID")
		return
	}

	// Re-submission of an already captured sale is a client retry, not an error
	if existing, err := r.store.ByID(id); err == nil {
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"message": "Sale already captured",
			"sale":    existing,
		})
		return
	} else if !errors.Is(err, sync.ErrSaleNotFound) {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rec := models.OfflineSaleRecord{
		ID:          id,
		SellerID:    sess.SellerID,
		CustomerID:  capture.CustomerID,
		WarehouseID: capture.WarehouseID,
		Status:      models.SaleStatusPendingSync,
		LineItems:   capture.LineItems,
	}
	for i := range rec.LineItems {
		rec.LineItems[i].SaleID = id
		rec.LineItems[i].Recompute()
	}
	rec.RecomputeTotals(r.cfg.TaxRate)

	if err := rec.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.store.Save(&rec); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	r.hub.BroadcastEvent("sale_captured", map[string]interface{}{
		"uuid":       rec.ID,
		"grandTotal": rec.GrandTotal,
	})

	respondJSON(w, http.StatusCreated, rec)
}

// listSales returns the caller's offline sales, optionally filtered by
// status (?status=PENDING_SYNC,REVIEW_REQUIRED). Reviewers may scope to
// another seller with ?sellerId=.
func (r *Router) listSales(w http.ResponseWriter, req *http.Request) {
	sess := middleware.SessionFrom(req.Context())

	sellerID := sess.SellerID
	if target := req.URL.Query().Get("sellerId"); target != "" && target != sess.SellerID {
		if !sess.IsReviewer() {
			respondError(w, http.StatusForbidden, "Only reviewers may read other sellers' sales")
			return
		}
		sellerID = target
	}

	statuses := []models.SaleStatus{
		models.SaleStatusPendingSync,
		models.SaleStatusConfirmed,
		models.SaleStatusReviewRequired,
		models.SaleStatusCancelled,
	}
	if raw := req.URL.Query().Get("status"); raw != "" {
		statuses = statuses[:0]
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, models.SaleStatus(strings.TrimSpace(s)))
		}
	}

	sales, err := r.store.ListByStatus(sellerID, statuses...)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(sales),
		"sales": sales,
	})
}

// getSale returns a single offline sale by uuid
func (r *Router) getSale(w http.ResponseWriter, req *http.Request) {
	sess := middleware.SessionFrom(req.Context())
	id := mux.Vars(req)["id"]

	rec, err := r.store.ByID(id)
	if errors.Is(err, sync.ErrSaleNotFound) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Sale %s not found", id))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec.SellerID != sess.SellerID && !sess.IsReviewer() {
		respondError(w, http.StatusForbidden, "Sale belongs to another seller")
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// getReceipt renders the thermal receipt PDF for a confirmed sale
func (r *Router) getReceipt(w http.ResponseWriter, req *http.Request) {
	sess := middleware.SessionFrom(req.Context())
	id := mux.Vars(req)["id"]

	rec, err := r.store.ByID(id)
	if errors.Is(err, sync.ErrSaleNotFound) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Sale %s not found", id))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec.SellerID != sess.SellerID && !sess.IsReviewer() {
		respondError(w, http.StatusForbidden, "Sale belongs to another seller")
		return
	}

	pdf, err := receipt.Generate(rec, r.cfg.StoreName)
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=receipt-%s.pdf", rec.Folio))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
