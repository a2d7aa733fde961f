package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ventamovil/posync/internal/models"
	"github.com/ventamovil/posync/internal/session"
	"github.com/ventamovil/posync/internal/utils"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents a seller registration request
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	WarehouseID string `json:"warehouseId"`
}

// login handles seller login against the locally cached accounts, so the
// terminal keeps working while the ledger is unreachable
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if err := json.NewDecoder(req.Body).Decode(&loginReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	// 1. Find Seller
	var seller models.SellerAccount
	if err := r.db.Where("username = ? AND is_active = ?", loginReq.Username, true).First(&seller).Error; err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// 2. Check Password
	if !utils.CheckPasswordHash(loginReq.Password, seller.Password) {
		seller.FailedLoginAttempts++
		r.db.Save(&seller)
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// 3. Update Last Login
	now := time.Now()
	seller.LastLogin = &now
	seller.FailedLoginAttempts = 0
	r.db.Save(&seller)

	// 4. Generate Token
	token, err := utils.GenerateToken(&seller, r.cfg.JWTSecret, 0)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	// 5. Hand the session to the sync engine so background cycles can run
	sess, err := session.FromToken(token, r.cfg.JWTSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to build session")
		return
	}
	r.engine.SetSession(sess)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":  token,
		"seller": seller,
	})
}

// register handles seller account creation
func (r *Router) register(w http.ResponseWriter, req *http.Request) {
	var regReq RegisterRequest
	if err := json.NewDecoder(req.Body).Decode(&regReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if regReq.Username == "" || regReq.Password == "" {
		respondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	// 1. Hash Password
	hashedPassword, err := utils.HashPassword(regReq.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	// 2. Create Seller
	role := regReq.Role
	if role != models.RoleReviewer {
		role = models.RoleSeller
	}
	seller := models.SellerAccount{
		Username:    regReq.Username,
		Password:    hashedPassword,
		Name:        regReq.Name,
		Role:        role,
		WarehouseID: regReq.WarehouseID,
		IsActive:    true,
	}

	if err := r.db.Create(&seller).Error; err != nil {
		respondError(w, http.StatusBadRequest, "Failed to create seller (username might exist)")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Seller registered successfully",
		"seller":  seller,
	})
}

// logout drops the sync engine's session; captured sales stay queued
func (r *Router) logout(w http.ResponseWriter, req *http.Request) {
	r.engine.SetSession(nil)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out",
	})
}
