package httpapi

import (
	"encoding/json"
	"net/http"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/service"
)

type AdminHandler struct {
	admin service.AdminService
}

func NewAdminHandler(admin service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

type addGameRequest struct {
	Name     string `json:"name"`
	BranchID string `json:"branch_id"`
}

func (h *AdminHandler) AddGame(w http.ResponseWriter, r *http.Request) {
	var req addGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	game, err := h.admin.AddGame(r.Context(), req.Name, req.BranchID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

func (h *AdminHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.admin.ListGames(r.Context(), r.URL.Query().Get("branch"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

type addEmployeeRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	BranchID string `json:"branch_id"`
	Role     string `json:"role"`
}

func (h *AdminHandler) AddEmployee(w http.ResponseWriter, r *http.Request) {
	var req addEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	role := domain.Role(req.Role)
	if req.Role == "" {
		role = domain.RoleEmployee
	}
	user, err := h.admin.AddEmployee(r.Context(), req.Email, req.Password, req.Name, req.BranchID, role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}
