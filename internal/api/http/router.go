package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"gamerental-backend/internal/config"
	"gamerental-backend/internal/repository"
	"gamerental-backend/internal/security"
	"gamerental-backend/internal/service"
)

// Services bundles everything the router needs.
type Services struct {
	Rentals   service.RentalService
	Reports   service.ReportService
	Admin     service.AdminService
	Auth      service.AuthService
	Tokens    security.TokenManager
	Snapshots repository.ReportRepository
}

// NewRouter wires all v1 routes. Customer resolve is public; rental lifecycle
// actions take a session token or a staff token; admin routes take an admin
// token.
func NewRouter(cfg *config.Config, svc Services) http.Handler {
	rentalHandler := NewRentalHandler(svc.Rentals, svc.Tokens, cfg.Billing.RatePerMinute, cfg.Billing.Currency)
	adminHandler := NewAdminHandler(svc.Admin)
	reportHandler := NewReportHandler(svc.Reports, svc.Snapshots, cfg.Billing.Currency)
	authHandler := NewAuthHandler(svc.Auth)
	authn := newAuthMiddleware(svc.Auth)
	limiter := newIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	r := mux.NewRouter()
	r.Use(loggingMiddleware)
	r.Use(limiter.middleware)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)

	v1.HandleFunc("/rentals/{branchId}/{gameId}", rentalHandler.Resolve).Methods(http.MethodGet)
	v1.Handle("/rentals/{branchId}/{gameId}/pause", authn.require(http.HandlerFunc(rentalHandler.Pause))).Methods(http.MethodPost)
	v1.Handle("/rentals/{branchId}/{gameId}/resume", authn.require(http.HandlerFunc(rentalHandler.Resume))).Methods(http.MethodPost)
	v1.Handle("/rentals/{branchId}/{gameId}/end", authn.require(http.HandlerFunc(rentalHandler.End))).Methods(http.MethodPost)
	v1.Handle("/rentals/{branchId}/{gameId}/rescan", authn.require(http.HandlerFunc(rentalHandler.Rescan))).Methods(http.MethodPost)

	v1.Handle("/scan", authn.requireStaff(http.HandlerFunc(rentalHandler.Scan))).Methods(http.MethodPost)
	v1.Handle("/branches/{branchId}/rentals", authn.requireStaff(http.HandlerFunc(rentalHandler.ListByBranch))).Methods(http.MethodGet)

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.Handle("/games", authn.requireAdmin(http.HandlerFunc(adminHandler.AddGame))).Methods(http.MethodPost)
	admin.Handle("/games", authn.requireAdmin(http.HandlerFunc(adminHandler.ListGames))).Methods(http.MethodGet)
	admin.Handle("/employees", authn.requireAdmin(http.HandlerFunc(adminHandler.AddEmployee))).Methods(http.MethodPost)
	admin.Handle("/reports/revenue", authn.requireAdmin(http.HandlerFunc(reportHandler.Revenue))).Methods(http.MethodGet)
	admin.Handle("/reports/top-games", authn.requireAdmin(http.HandlerFunc(reportHandler.TopGames))).Methods(http.MethodGet)
	admin.Handle("/reports/daily/{date}", authn.requireAdmin(http.HandlerFunc(reportHandler.DailySnapshot))).Methods(http.MethodGet)

	return r
}
