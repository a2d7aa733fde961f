package handlers

import (
	"net/http"

	"github.com/ventamovil/posync/internal/middleware"
)

// syncStatus reports the engine state and the caller's pending backlog
func (r *Router) syncStatus(w http.ResponseWriter, req *http.Request) {
	sess := middleware.SessionFrom(req.Context())

	status := r.engine.GetSyncStatus()
	pending, err := r.engine.PendingCount(sess.SellerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status["pending_count"] = pending
	status["connected_terminals"] = r.hub.ConnectedTerminals()

	respondJSON(w, http.StatusOK, status)
}

// syncNow triggers an immediate push of the caller's pending sales
func (r *Router) syncNow(w http.ResponseWriter, req *http.Request) {
	sess := middleware.SessionFrom(req.Context())

	result, err := r.engine.SyncNow(req.Context(), sess)
	if err != nil {
		respondSyncError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// syncCheck triggers a reconciliation poll against the ledger. Reviewers
// may poll on behalf of another seller with ?sellerId=.
func (r *Router) syncCheck(w http.ResponseWriter, req *http.Request) {
	sess := middleware.SessionFrom(req.Context())
	target := req.URL.Query().Get("sellerId")

	report, err := r.engine.CheckStatus(req.Context(), sess, target)
	if err != nil {
		respondSyncError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// syncDedup runs the duplicate-error healing pass on its own
func (r *Router) syncDedup(w http.ResponseWriter, req *http.Request) {
	sess := middleware.SessionFrom(req.Context())

	report, err := r.engine.RunDedup(req.Context(), sess)
	if err != nil {
		respondSyncError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}
