package httpapi

import (
	"net/http"
	"strings"
	"time"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/logger"
	"gamerental-backend/internal/security"
	"gamerental-backend/internal/service"
)

// loggingMiddleware logs each request with its status and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type authMiddleware struct {
	auth service.AuthService
}

func newAuthMiddleware(auth service.AuthService) *authMiddleware {
	return &authMiddleware{auth: auth}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// require authenticates the bearer token and attaches the principal.
func (m *authMiddleware) require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := m.auth.ResolvePrincipal(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

// requireStaff admits signed-in employees and admins.
func (m *authMiddleware) requireStaff(next http.Handler) http.Handler {
	return m.require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := principalFrom(r.Context()); p == nil || !p.IsStaff() {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "staff access required"})
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// requireAdmin admits admins only.
func (m *authMiddleware) requireAdmin(next http.Handler) http.Handler {
	return m.require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := principalFrom(r.Context()); p == nil || p.Role != domain.RoleAdmin {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// requireRentalAccess admits principals allowed to drive the addressed
// rental: the holder of its session token, or staff at its branch.
func requireRentalAccess(p *security.Principal, key domain.RentalKey) bool {
	return p != nil && p.CanManageRental(key.DocID(), key.BranchID)
}
