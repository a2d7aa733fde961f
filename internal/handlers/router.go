package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ventamovil/posync/internal/config"
	"github.com/ventamovil/posync/internal/database"
	"github.com/ventamovil/posync/internal/ledger"
	"github.com/ventamovil/posync/internal/middleware"
	"github.com/ventamovil/posync/internal/session"
	"github.com/ventamovil/posync/internal/sync"
	"github.com/ventamovil/posync/internal/websocket"
)

// Router wraps the mux router with the agent's dependencies
type Router struct {
	*mux.Router
	db     *database.DB
	store  sync.SaleStore
	engine *sync.SyncEngine
	cfg    *config.Config
	hub    *websocket.Hub
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, store sync.SaleStore, engine *sync.SyncEngine, cfg *config.Config, hub *websocket.Hub) *Router {
	r := &Router{
		Router: mux.NewRouter(),
		db:     db,
		store:  store,
		engine: engine,
		cfg:    cfg,
		hub:    hub,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")
	auth.HandleFunc("/logout", r.logout).Methods("POST")

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(cfg.JWTSecret))

	api.HandleFunc("/sales/offline", r.createSale).Methods("POST")
	api.HandleFunc("/sales/offline", r.listSales).Methods("GET")
	api.HandleFunc("/sales/offline/{id}", r.getSale).Methods("GET")
	api.HandleFunc("/sales/offline/{id}/receipt", r.getReceipt).Methods("GET")

	api.HandleFunc("/sync/status", r.syncStatus).Methods("GET")
	api.HandleFunc("/sync/now", r.syncNow).Methods("POST")
	api.HandleFunc("/sync/check", r.syncCheck).Methods("POST")
	api.HandleFunc("/sync/dedup", r.syncDedup).Methods("POST")

	api.HandleFunc("/conflicts", r.listConflicts).Methods("GET")
	api.HandleFunc("/conflicts/resolve", r.resolveConflict).Methods("POST")

	// Local UI status feed
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		websocket.ServeWS(hub, w, req)
	})

	return r
}

// healthCheck returns the health status of the agent
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"online": r.engine.GetSyncStatus()["is_online"],
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondSyncError maps engine errors to HTTP statuses
func respondSyncError(w http.ResponseWriter, err error) {
	var transport *ledger.TransportError
	var malformed *ledger.MalformedResponseError
	var server *ledger.ServerError
	switch {
	case errors.Is(err, sync.ErrSyncInProgress):
		respondError(w, http.StatusConflict, "a sync cycle is already running")
	case errors.Is(err, sync.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, sync.ErrInvalidResolution):
		respondError(w, http.StatusBadRequest, err.Error())
	case session.IsAuthenticationError(err):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &transport), errors.As(err, &malformed), errors.As(err, &server):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
