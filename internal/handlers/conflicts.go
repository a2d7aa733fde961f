package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ventamovil/posync/internal/middleware"
	"github.com/ventamovil/posync/internal/models"
)

// listConflicts returns the REVIEW_REQUIRED sales visible to the caller.
// Reviewers see every seller's conflicts; ?sellerId= narrows the view.
func (r *Router) listConflicts(w http.ResponseWriter, req *http.Request) {
	sess := middleware.SessionFrom(req.Context())

	sellerID := sess.SellerID
	if sess.IsReviewer() {
		sellerID = req.URL.Query().Get("sellerId")
	}

	conflicts, err := r.store.ListByStatus(sellerID, models.SaleStatusReviewRequired)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(conflicts),
		"conflicts": conflicts,
	})
}

// resolveConflict forwards a resolution action to the ledger
func (r *Router) resolveConflict(w http.ResponseWriter, req *http.Request) {
	sess := middleware.SessionFrom(req.Context())

	var action models.ConflictResolutionAction
	if err := json.NewDecoder(req.Body).Decode(&action); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if action.SaleID == "" {
		respondError(w, http.StatusBadRequest, "saleId is required")
		return
	}

	if err := r.engine.ResolveConflict(req.Context(), sess, action); err != nil {
		respondSyncError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"message": "Resolution submitted, run a sync check to observe the outcome",
	})
}
