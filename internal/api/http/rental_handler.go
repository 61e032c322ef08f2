package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/logger"
	"gamerental-backend/internal/security"
	"gamerental-backend/internal/service"
)

type RentalHandler struct {
	rentals  service.RentalService
	tokens   security.TokenManager
	rate     int64
	currency string
}

func NewRentalHandler(rentals service.RentalService, tokens security.TokenManager, rate int64, currency string) *RentalHandler {
	return &RentalHandler{rentals: rentals, tokens: tokens, rate: rate, currency: currency}
}

// rentalResponse is the customer-facing view of a rental. SessionToken is set
// when the caller may drive the session with it.
type rentalResponse struct {
	Rental        *domain.Rental `json:"rental"`
	SessionToken  string         `json:"session_token,omitempty"`
	RatePerMinute int64          `json:"rate_per_minute"`
	Currency      string         `json:"currency"`
}

func (h *RentalHandler) respondRental(w http.ResponseWriter, r *http.Request, rental *domain.Rental, issueToken bool) {
	resp := rentalResponse{
		Rental:        rental,
		RatePerMinute: h.rate,
		Currency:      h.currency,
	}
	if issueToken && rental.Status == domain.RentalStatusActive {
		token, err := h.tokens.GenerateSessionToken(rental.Key().DocID())
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.SessionToken = token
	}
	writeJSON(w, http.StatusOK, resp)
}

func rentalKey(r *http.Request) domain.RentalKey {
	vars := mux.Vars(r)
	return domain.RentalKey{GameID: vars["gameId"], BranchID: vars["branchId"]}
}

// Resolve serves the public customer page: it looks up or starts the rental
// for the scanned game and hands back a session token for an active one.
func (h *RentalHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	key := rentalKey(r)
	rental, err := h.rentals.Resolve(r.Context(), key.BranchID, key.GameID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondRental(w, r, rental, true)
}

func (h *RentalHandler) Rescan(w http.ResponseWriter, r *http.Request) {
	key := rentalKey(r)
	if !requireRentalAccess(principalFrom(r.Context()), key) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "not allowed to manage this rental"})
		return
	}
	rental, err := h.rentals.Rescan(r.Context(), key.BranchID, key.GameID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// A rescan starts a new session, so a fresh token is issued for it.
	h.respondRental(w, r, rental, true)
}

func (h *RentalHandler) Pause(w http.ResponseWriter, r *http.Request) {
	key := rentalKey(r)
	if !requireRentalAccess(principalFrom(r.Context()), key) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "not allowed to manage this rental"})
		return
	}
	if err := h.rentals.Pause(r.Context(), key); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (h *RentalHandler) Resume(w http.ResponseWriter, r *http.Request) {
	key := rentalKey(r)
	if !requireRentalAccess(principalFrom(r.Context()), key) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "not allowed to manage this rental"})
		return
	}
	if err := h.rentals.Resume(r.Context(), key); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

func (h *RentalHandler) End(w http.ResponseWriter, r *http.Request) {
	key := rentalKey(r)
	if !requireRentalAccess(principalFrom(r.Context()), key) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "not allowed to manage this rental"})
		return
	}
	rental, err := h.rentals.End(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondRental(w, r, rental, false)
}

type scanRequest struct {
	Payload string `json:"payload"`
}

// Scan handles an employee QR scan, toggling the rental for the scanned game.
func (h *RentalHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	p := principalFrom(r.Context())
	employee := &domain.User{
		UID:      p.UID,
		Email:    p.Email,
		Role:     p.Role,
		BranchID: p.BranchID,
	}
	rental, err := h.rentals.ScanToggle(r.Context(), employee, req.Payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.InfoContext(r.Context(), "Employee scan handled",
		"employee", p.UID, "rental", rental.Key().DocID(), "status", rental.Status)
	h.respondRental(w, r, rental, false)
}

// ListByBranch serves the staff dashboard for one branch.
func (h *RentalHandler) ListByBranch(w http.ResponseWriter, r *http.Request) {
	branchID := mux.Vars(r)["branchId"]
	p := principalFrom(r.Context())
	if p.Role != domain.RoleAdmin && p.BranchID != branchID {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "not assigned to this branch"})
		return
	}
	listing, err := h.rentals.ListByBranch(r.Context(), branchID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}
