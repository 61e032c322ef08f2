package service

import (
	"context"
	"errors"
	"time"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/security"
)

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrGameUnavailable    = errors.New("game is not available for rental")
	ErrRentalNotFound     = errors.New("no rental for this game")
	ErrBranchMismatch     = errors.New("scanned branch does not match assigned branch")
	ErrInvalidTransition  = errors.New("rental is not in a state that allows this action")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// RentalView is a rental joined with its game's display name.
type RentalView struct {
	domain.Rental
	GameName string `json:"game_name"`
}

// HistoryView is a history entry joined with its game's display name.
type HistoryView struct {
	domain.HistoryEntry
	GameName string `json:"game_name"`
}

// BranchRentals is the employee dashboard listing for one branch.
type BranchRentals struct {
	Active  []RentalView  `json:"active"`
	History []HistoryView `json:"history"`
}

type RentalService interface {
	// Resolve looks up or creates the rental for a (branch, game) pair.
	// An existing rental is returned as-is, whether active or completed;
	// starting over on a completed slot requires Rescan.
	Resolve(ctx context.Context, branchID, gameID string) (*domain.Rental, error)
	// Rescan starts a fresh session on a slot whose rental is completed.
	Rescan(ctx context.Context, branchID, gameID string) (*domain.Rental, error)
	// ScanToggle handles an employee QR scan: it ends the active rental
	// for the scanned game, or starts a new one attributed to the
	// employee if none is active.
	ScanToggle(ctx context.Context, employee *domain.User, payload string) (*domain.Rental, error)
	Pause(ctx context.Context, key domain.RentalKey) error
	Resume(ctx context.Context, key domain.RentalKey) error
	// End completes the rental, computing its final cost and archiving a
	// history entry. Ending an already-completed rental is a no-op that
	// returns the completed snapshot.
	End(ctx context.Context, key domain.RentalKey) (*domain.Rental, error)
	ListByBranch(ctx context.Context, branchID string) (*BranchRentals, error)
	// AdoptActiveSessions registers a ticking session for every active
	// rental in the store that has none, resuming from the last persisted
	// total. Returns how many sessions were adopted.
	AdoptActiveSessions(ctx context.Context) (int, error)
	// Shutdown stops all tickers and pending timers.
	Shutdown()
}

type ReportService interface {
	// Start subscribes to the rental and history sets; aggregates are
	// recomputed from the freshest snapshot on every change.
	Start(ctx context.Context) error
	Stop()
	RevenueByEmployee(ctx context.Context, window time.Duration) (map[string]int64, error)
	TopGames(ctx context.Context, window time.Duration, n int) ([]domain.GameUsage, error)
	BuildDailyReport(ctx context.Context, now time.Time) (*domain.RevenueReport, error)
}

type AdminService interface {
	AddGame(ctx context.Context, name, branchID string) (*domain.Game, error)
	ListGames(ctx context.Context, branchID string) ([]domain.Game, error)
	AddEmployee(ctx context.Context, email, password, name, branchID string, role domain.Role) (*domain.User, error)
}

type AuthService interface {
	// Login authenticates against the users collection (local mode only)
	// and issues an access token.
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	// ResolvePrincipal authenticates a bearer token of any supported kind:
	// a locally issued access or session token, or an identity provider ID
	// token (firebase mode).
	ResolvePrincipal(ctx context.Context, bearer string) (*security.Principal, error)
}

type EmailService interface {
	SendEmployeeWelcome(ctx context.Context, email, name, branchID string) error
}
