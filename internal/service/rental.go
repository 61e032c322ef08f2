package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/logger"
	"gamerental-backend/internal/qr"
	"gamerental-backend/internal/repository"
)

const unknownGameLabel = "unknown game"

type rentalService struct {
	rentals repository.RentalRepository
	history repository.HistoryRepository
	games   repository.GameRepository
	clock   *sessionClock
	rate    int64
	names   *gocache.Cache
}

func NewRentalService(
	rentals repository.RentalRepository,
	history repository.HistoryRepository,
	games repository.GameRepository,
	ratePerMinute int64,
	tickPeriod time.Duration,
	pauseTimeout time.Duration,
) RentalService {
	s := &rentalService{
		rentals: rentals,
		history: history,
		games:   games,
		rate:    ratePerMinute,
		names:   gocache.New(5*time.Minute, 10*time.Minute),
	}
	s.clock = newSessionClock(tickPeriod, pauseTimeout, s.persistTick)
	return s
}

// persistTick writes the absolute minute count for one tick. A transient
// failure is logged and left for the next write to reconcile; a rental that
// another writer completed or removed is dropped from the clock instead.
func (s *rentalService) persistTick(key domain.RentalKey, minutes int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.rentals.UpdateTotalTime(ctx, key, minutes)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotActive), errors.Is(err, repository.ErrNotFound):
		s.clock.Stop(key)
		logger.Info("Stopped ticking non-active rental", "rental", key.DocID())
	default:
		logger.Warn("Failed to persist tick", "rental", key.DocID(), "minutes", minutes, "error", err)
	}
}

func (s *rentalService) lookupGame(ctx context.Context, branchID, gameID string) (*domain.Game, error) {
	game, err := s.games.GetByID(ctx, gameID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	if game.BranchID != branchID {
		return nil, ErrGameNotFound
	}
	return game, nil
}

func (s *rentalService) Resolve(ctx context.Context, branchID, gameID string) (*domain.Rental, error) {
	game, err := s.lookupGame(ctx, branchID, gameID)
	if err != nil {
		return nil, err
	}
	key := domain.RentalKey{GameID: gameID, BranchID: branchID}

	rental, err := s.rentals.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return s.startSession(ctx, game, key, "")
	}
	if err != nil {
		return nil, err
	}

	if rental.Status == domain.RentalStatusActive {
		if minutes, ok := s.clock.Minutes(key); ok {
			rental.TotalTime = minutes
		} else {
			// Active in the store but not ticking here: a restart lost
			// the session. Resume from the last persisted total.
			s.clock.Track(key, rental.TotalTime)
		}
	}
	return rental, nil
}

func (s *rentalService) Rescan(ctx context.Context, branchID, gameID string) (*domain.Rental, error) {
	game, err := s.lookupGame(ctx, branchID, gameID)
	if err != nil {
		return nil, err
	}
	key := domain.RentalKey{GameID: gameID, BranchID: branchID}

	rental, err := s.rentals.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRentalNotFound
	}
	if err != nil {
		return nil, err
	}
	if !domain.ValidTransition("rescan", rental.Status) {
		return nil, ErrInvalidTransition
	}
	return s.startSession(ctx, game, key, "")
}

func (s *rentalService) ScanToggle(ctx context.Context, employee *domain.User, payload string) (*domain.Rental, error) {
	decoded, err := qr.Parse(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if employee == nil || employee.BranchID != decoded.BranchID {
		logger.Warn("Scan rejected: branch mismatch",
			"scanned_branch", decoded.BranchID,
			"employee", employeeUID(employee))
		return nil, ErrBranchMismatch
	}

	game, err := s.lookupGame(ctx, decoded.BranchID, decoded.GameID)
	if err != nil {
		return nil, err
	}
	key := domain.RentalKey{GameID: decoded.GameID, BranchID: decoded.BranchID}

	rental, err := s.rentals.Get(ctx, key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return s.startSession(ctx, game, key, employee.UID)
	case err != nil:
		return nil, err
	case rental.Status == domain.RentalStatusActive:
		return s.End(ctx, key)
	default:
		// Completed slot: the deliberate scan is the explicit
		// new-session action.
		return s.startSession(ctx, game, key, employee.UID)
	}
}

func employeeUID(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.UID
}

func (s *rentalService) startSession(ctx context.Context, game *domain.Game, key domain.RentalKey, employeeID string) (*domain.Rental, error) {
	if !game.Available {
		return nil, ErrGameUnavailable
	}
	rental := &domain.Rental{
		SessionID:  uuid.NewString(),
		GameID:     key.GameID,
		BranchID:   key.BranchID,
		EmployeeID: employeeID,
		CustomerID: "guest-" + uuid.NewString()[:8],
		StartTime:  time.Now().UTC(),
		Status:     domain.RentalStatusActive,
		TotalTime:  0,
	}
	if err := s.rentals.Set(ctx, rental); err != nil {
		return nil, err
	}
	s.clock.Track(key, 0)
	logger.Info("Rental session started",
		"rental", rental.ID, "session", rental.SessionID, "employee", employeeID)
	return rental, nil
}

func (s *rentalService) Pause(ctx context.Context, key domain.RentalKey) error {
	if err := s.ensureTracked(ctx, key); err != nil {
		return err
	}
	minutes, err := s.clock.Pause(key)
	if err != nil {
		return err
	}
	// Flush the shown total so nothing is lost if we die while paused.
	// The pause itself stays applied even if the flush fails.
	if err := s.rentals.UpdateTotalTime(ctx, key, minutes); err != nil {
		if errors.Is(err, repository.ErrNotActive) {
			s.clock.Stop(key)
			return ErrInvalidTransition
		}
		if errors.Is(err, repository.ErrNotFound) {
			s.clock.Stop(key)
			return ErrRentalNotFound
		}
		logger.Warn("Failed to flush total time on pause", "rental", key.DocID(), "error", err)
		return err
	}
	return nil
}

func (s *rentalService) Resume(ctx context.Context, key domain.RentalKey) error {
	if err := s.ensureTracked(ctx, key); err != nil {
		return err
	}
	return s.clock.Resume(key)
}

// ensureTracked re-adopts a store-active rental whose clock session was lost
// to a restart.
func (s *rentalService) ensureTracked(ctx context.Context, key domain.RentalKey) error {
	if s.clock.Tracked(key) {
		return nil
	}
	rental, err := s.rentals.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrRentalNotFound
	}
	if err != nil {
		return err
	}
	if rental.Status != domain.RentalStatusActive {
		return ErrInvalidTransition
	}
	s.clock.Track(key, rental.TotalTime)
	return nil
}

func (s *rentalService) End(ctx context.Context, key domain.RentalKey) (*domain.Rental, error) {
	minutes, tracked := s.clock.Stop(key)

	rental, completed, err := s.rentals.CompleteIfActive(ctx, key, func(r *domain.Rental) {
		if tracked && minutes > r.TotalTime {
			r.TotalTime = minutes
		}
		cost := Cost(r.TotalTime, s.rate)
		now := time.Now().UTC()
		r.Status = domain.RentalStatusCompleted
		r.Cost = &cost
		r.EndTime = &now
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRentalNotFound
		}
		if tracked {
			// Keep counting locally; ending is safely re-triggerable.
			s.clock.Track(key, minutes)
		}
		return nil, err
	}

	if completed {
		entry := domain.NewHistoryEntry(rental, time.Now().UTC())
		if err := s.history.Add(ctx, entry); err != nil {
			logger.Error("Failed to archive completed session",
				"rental", rental.ID, "session", rental.SessionID, "error", err)
		}
		logger.Info("Rental session completed",
			"rental", rental.ID, "minutes", rental.TotalTime, "cost", *rental.Cost)
	}
	return rental, nil
}

func (s *rentalService) ListByBranch(ctx context.Context, branchID string) (*BranchRentals, error) {
	rentals, err := s.rentals.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	entries, err := s.history.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}

	out := &BranchRentals{}
	for _, rental := range rentals {
		if rental.Status != domain.RentalStatusActive {
			continue
		}
		if minutes, ok := s.clock.Minutes(rental.Key()); ok {
			rental.TotalTime = minutes
		}
		out.Active = append(out.Active, RentalView{
			Rental:   rental,
			GameName: s.gameName(ctx, rental.GameID),
		})
	}
	for _, entry := range entries {
		out.History = append(out.History, HistoryView{
			HistoryEntry: entry,
			GameName:     s.gameName(ctx, entry.GameID),
		})
	}
	return out, nil
}

// gameName joins a game's display name through a short-lived cache. Join
// failures (game deleted) degrade to a placeholder, not an error.
func (s *rentalService) gameName(ctx context.Context, gameID string) string {
	if cached, ok := s.names.Get(gameID); ok {
		return cached.(string)
	}
	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return unknownGameLabel
	}
	s.names.Set(gameID, game.Name, gocache.DefaultExpiration)
	return game.Name
}

func (s *rentalService) AdoptActiveSessions(ctx context.Context) (int, error) {
	active, err := s.rentals.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	adopted := 0
	for _, rental := range active {
		key := rental.Key()
		if s.clock.Tracked(key) {
			continue
		}
		s.clock.Track(key, rental.TotalTime)
		adopted++
	}
	if adopted > 0 {
		logger.Info("Adopted active rental sessions", "count", adopted)
	}
	return adopted, nil
}

func (s *rentalService) Shutdown() {
	s.clock.Shutdown()
}
