package repository

import (
	"context"
	"errors"

	"gamerental-backend/internal/domain"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotActive is returned by UpdateTotalTime when the rental is no longer
// active. The caller must stop ticking the session.
var ErrNotActive = errors.New("rental is not active")

// RentalRepository manages the live rental documents. One document per
// (gameId, branchId) key; the set of documents is observable via Watch.
type RentalRepository interface {
	Get(ctx context.Context, key domain.RentalKey) (*domain.Rental, error)
	// Set writes the full live rental document for its key, replacing any
	// previous session (last write wins).
	Set(ctx context.Context, rental *domain.Rental) error
	// UpdateTotalTime persists the absolute accumulated minutes for an
	// active rental. A rental in any other status is left untouched and
	// ErrNotActive is returned, so a stale ticker can never mutate a
	// completed document.
	UpdateTotalTime(ctx context.Context, key domain.RentalKey, minutes int64) error
	// CompleteIfActive atomically transitions the rental from active to
	// completed, applying finalize to the stored snapshot before writing.
	// Returns the resulting rental and whether this call performed the
	// transition; a rental that is already completed is returned unchanged
	// with completed=false and no error.
	CompleteIfActive(ctx context.Context, key domain.RentalKey, finalize func(*domain.Rental)) (rental *domain.Rental, completed bool, err error)
	List(ctx context.Context) ([]domain.Rental, error)
	ListByBranch(ctx context.Context, branchID string) ([]domain.Rental, error)
	ListActive(ctx context.Context) ([]domain.Rental, error)
	// Watch subscribes to the full rental set. Each receive is a fresh
	// snapshot; delivery ordering beyond last-snapshot-wins is not
	// guaranteed. The returned func cancels the subscription.
	Watch(ctx context.Context) (<-chan []domain.Rental, func(), error)
}

// HistoryRepository manages the immutable archive of completed sessions.
type HistoryRepository interface {
	Add(ctx context.Context, entry *domain.HistoryEntry) error
	List(ctx context.Context) ([]domain.HistoryEntry, error)
	ListByBranch(ctx context.Context, branchID string) ([]domain.HistoryEntry, error)
	Watch(ctx context.Context) (<-chan []domain.HistoryEntry, func(), error)
}

// GameRepository manages the game catalog.
type GameRepository interface {
	Create(ctx context.Context, game *domain.Game) error
	GetByID(ctx context.Context, id string) (*domain.Game, error)
	Update(ctx context.Context, game *domain.Game) error
	List(ctx context.Context) ([]domain.Game, error)
	ListByBranch(ctx context.Context, branchID string) ([]domain.Game, error)
}

// UserRepository manages identity documents keyed by auth UID.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUID(ctx context.Context, uid string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// ReportRepository persists daily revenue report snapshots.
type ReportRepository interface {
	Save(ctx context.Context, report *domain.RevenueReport) error
	GetByDate(ctx context.Context, date string) (*domain.RevenueReport, error)
}
