package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gamerental-backend/internal/config"
	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/repository/memory"
	"gamerental-backend/internal/security"
	"gamerental-backend/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	server *httptest.Server
	store  *memory.Store
	tokens security.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	tokens := security.NewTokenManager(testSecret, time.Hour, time.Hour)

	cfg := &config.Config{}
	cfg.Billing.RatePerMinute = 3
	cfg.Billing.Currency = "bob"
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 1000
	cfg.QR.BaseURL = "http://localhost:3000"

	rentalSvc := service.NewRentalService(
		store.RentalRepository,
		store.HistoryRepository,
		store.GameRepository,
		cfg.Billing.RatePerMinute,
		time.Hour,
		time.Hour,
	)
	reportSvc := service.NewReportService(store.RentalRepository, store.HistoryRepository, store.GameRepository)
	adminSvc := service.NewAdminService(store.GameRepository, store.UserRepository, nil, nil, cfg.QR.BaseURL)
	authSvc := service.NewAuthService(store.UserRepository, tokens, nil)

	router := NewRouter(cfg, Services{
		Rentals:   rentalSvc,
		Reports:   reportSvc,
		Admin:     adminSvc,
		Auth:      authSvc,
		Tokens:    tokens,
		Snapshots: store.ReportRepository,
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		rentalSvc.Shutdown()
	})
	return &testEnv{server: server, store: store, tokens: tokens}
}

func (e *testEnv) addGame(t *testing.T, name, branchID string) *domain.Game {
	t.Helper()
	game := &domain.Game{Name: name, BranchID: branchID, Available: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, e.store.GameRepository.Create(context.Background(), game))
	return game
}

func (e *testEnv) staffToken(t *testing.T, uid string, role domain.Role, branchID string) string {
	t.Helper()
	token, err := e.tokens.GenerateAccessToken(&domain.User{UID: uid, Role: role, BranchID: branchID})
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type rentalResp struct {
	Rental        *domain.Rental `json:"rental"`
	SessionToken  string         `json:"session_token"`
	RatePerMinute int64          `json:"rate_per_minute"`
	Currency      string         `json:"currency"`
}

func TestResolveIsPublicAndIssuesSessionToken(t *testing.T) {
	env := newTestEnv(t)
	game := env.addGame(t, "Chess", "b1")

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/v1/rentals/b1/%s", game.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[rentalResp](t, resp)
	assert.Equal(t, domain.RentalStatusActive, body.Rental.Status)
	assert.NotEmpty(t, body.SessionToken)
	assert.Equal(t, int64(3), body.RatePerMinute)
	assert.Equal(t, "bob", body.Currency)
}

func TestResolveUnknownGameIs404(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/v1/rentals/b1/nope", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLifecycleWithSessionToken(t *testing.T) {
	env := newTestEnv(t)
	game := env.addGame(t, "Chess", "b1")
	base := fmt.Sprintf("/v1/rentals/b1/%s", game.ID)

	resolved := decode[rentalResp](t, env.do(t, http.MethodGet, base, "", nil))
	token := resolved.SessionToken

	// No token at all
	resp := env.do(t, http.MethodPost, base+"/pause", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The rental's own session token
	resp = env.do(t, http.MethodPost, base+"/pause", token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, base+"/resume", token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, base+"/end", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ended := decode[rentalResp](t, resp)
	assert.Equal(t, domain.RentalStatusCompleted, ended.Rental.Status)
	assert.Empty(t, ended.SessionToken, "no token is issued for a completed rental")

	// Rescan with the old session token starts a new session
	resp = env.do(t, http.MethodPost, base+"/rescan", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fresh := decode[rentalResp](t, resp)
	assert.Equal(t, domain.RentalStatusActive, fresh.Rental.Status)
	assert.NotEqual(t, resolved.Rental.SessionID, fresh.Rental.SessionID)
	assert.NotEmpty(t, fresh.SessionToken)
}

func TestSessionTokenIsScopedToItsRental(t *testing.T) {
	env := newTestEnv(t)
	chess := env.addGame(t, "Chess", "b1")
	darts := env.addGame(t, "Darts", "b1")

	chessResp := decode[rentalResp](t, env.do(t, http.MethodGet, "/v1/rentals/b1/"+chess.ID, "", nil))
	decode[rentalResp](t, env.do(t, http.MethodGet, "/v1/rentals/b1/"+darts.ID, "", nil))

	resp := env.do(t, http.MethodPost, "/v1/rentals/b1/"+darts.ID+"/pause", chessResp.SessionToken, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStaffCanDriveBranchRentals(t *testing.T) {
	env := newTestEnv(t)
	game := env.addGame(t, "Chess", "b1")
	decode[rentalResp](t, env.do(t, http.MethodGet, "/v1/rentals/b1/"+game.ID, "", nil))

	sameBranch := env.staffToken(t, "emp1", domain.RoleEmployee, "b1")
	otherBranch := env.staffToken(t, "emp2", domain.RoleEmployee, "b2")

	resp := env.do(t, http.MethodPost, "/v1/rentals/b1/"+game.ID+"/end", otherBranch, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/v1/rentals/b1/"+game.ID+"/end", sameBranch, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestScanEndpoint(t *testing.T) {
	env := newTestEnv(t)
	game := env.addGame(t, "Chess", "b1")
	payload := "http://localhost:3000/game/b1/" + game.ID
	employee := env.staffToken(t, "emp1", domain.RoleEmployee, "b1")

	resp := env.do(t, http.MethodPost, "/v1/scan", employee, map[string]string{"payload": payload})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	started := decode[rentalResp](t, resp)
	assert.Equal(t, domain.RentalStatusActive, started.Rental.Status)
	assert.Equal(t, "emp1", started.Rental.EmployeeID)

	// Second scan toggles the same rental to completed
	resp = env.do(t, http.MethodPost, "/v1/scan", employee, map[string]string{"payload": payload})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ended := decode[rentalResp](t, resp)
	assert.Equal(t, domain.RentalStatusCompleted, ended.Rental.Status)

	// Wrong branch staff
	outsider := env.staffToken(t, "emp2", domain.RoleEmployee, "b2")
	resp = env.do(t, http.MethodPost, "/v1/scan", outsider, map[string]string{"payload": payload})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Customers cannot scan
	sessionToken, err := env.tokens.GenerateSessionToken(game.ID + "-b1")
	require.NoError(t, err)
	resp = env.do(t, http.MethodPost, "/v1/scan", sessionToken, map[string]string{"payload": payload})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBranchListingAccess(t *testing.T) {
	env := newTestEnv(t)
	game := env.addGame(t, "Chess", "b1")
	decode[rentalResp](t, env.do(t, http.MethodGet, "/v1/rentals/b1/"+game.ID, "", nil))

	employee := env.staffToken(t, "emp1", domain.RoleEmployee, "b1")
	resp := env.do(t, http.MethodGet, "/v1/branches/b1/rentals", employee, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listing := decode[service.BranchRentals](t, resp)
	require.Len(t, listing.Active, 1)
	assert.Equal(t, "Chess", listing.Active[0].GameName)

	outsider := env.staffToken(t, "emp2", domain.RoleEmployee, "b2")
	resp = env.do(t, http.MethodGet, "/v1/branches/b1/rentals", outsider, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := env.staffToken(t, "adm1", domain.RoleAdmin, "")
	resp = env.do(t, http.MethodGet, "/v1/branches/b1/rentals", admin, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "admins may list any branch")
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)
	employee := env.staffToken(t, "emp1", domain.RoleEmployee, "b1")
	admin := env.staffToken(t, "adm1", domain.RoleAdmin, "")

	resp := env.do(t, http.MethodPost, "/v1/admin/games", employee, map[string]string{"name": "Chess", "branch_id": "b1"})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/v1/admin/games", admin, map[string]string{"name": "Chess", "branch_id": "b1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	game := decode[domain.Game](t, resp)
	assert.Contains(t, game.QRPayload, "/game/b1/"+game.ID)

	resp = env.do(t, http.MethodGet, "/v1/admin/games?branch=b1", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	games := decode[map[string][]domain.Game](t, resp)
	assert.Len(t, games["games"], 1)
}

func TestAddEmployeeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	admin := env.staffToken(t, "adm1", domain.RoleAdmin, "")

	resp := env.do(t, http.MethodPost, "/v1/admin/employees", admin, map[string]string{
		"email":     "ana@example.com",
		"password":  "secret1",
		"name":      "Ana",
		"branch_id": "b1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := decode[domain.User](t, resp)
	assert.Equal(t, domain.RoleEmployee, user.Role, "role defaults to employee")

	resp = env.do(t, http.MethodPost, "/v1/admin/employees", admin, map[string]string{
		"email": "bad", "password": "x", "name": "", "branch_id": "",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, env.store.UserRepository.Create(context.Background(), &domain.User{
		UID: "u1", Email: "ana@example.com", Role: domain.RoleAdmin, BranchID: "b1", PasswordHash: string(hash),
	}))

	resp := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]json.RawMessage](t, resp)
	assert.NotEmpty(t, body["token"])

	resp = env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "wrong",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRevenueAndTopGamesEndpoints(t *testing.T) {
	env := newTestEnv(t)
	admin := env.staffToken(t, "adm1", domain.RoleAdmin, "")

	now := time.Now().UTC()
	require.NoError(t, env.store.HistoryRepository.Add(context.Background(), &domain.HistoryEntry{
		RentalID: "g1-b1", SessionID: "s1", GameID: "g1", BranchID: "b1",
		EmployeeID: "emp1", StartTime: now.Add(-time.Hour), Cost: 30,
	}))

	resp := env.do(t, http.MethodGet, "/v1/admin/reports/revenue?window=daily", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	revenue := decode[map[string]json.RawMessage](t, resp)
	assert.JSONEq(t, `{"emp1":30}`, string(revenue["revenue_by_employee"]))

	resp = env.do(t, http.MethodGet, "/v1/admin/reports/revenue?window=hourly", admin, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/v1/admin/reports/top-games?n=3", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	top := decode[map[string][]domain.GameUsage](t, resp)
	require.Len(t, top["top_games"], 1)
	assert.Equal(t, "g1", top["top_games"][0].GameID)
}

func TestDailySnapshotEndpoint(t *testing.T) {
	env := newTestEnv(t)
	admin := env.staffToken(t, "adm1", domain.RoleAdmin, "")

	resp := env.do(t, http.MethodGet, "/v1/admin/reports/daily/2026-08-29", admin, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/v1/admin/reports/daily/yesterday", admin, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.NoError(t, env.store.ReportRepository.Save(context.Background(), &domain.RevenueReport{
		Date: "2026-08-29", DailyRevenue: 42,
	}))
	resp = env.do(t, http.MethodGet, "/v1/admin/reports/daily/2026-08-29", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[domain.RevenueReport](t, resp)
	assert.Equal(t, int64(42), report.DailyRevenue)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
