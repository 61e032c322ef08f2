package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/qr"
	"gamerental-backend/internal/repository/memory"
)

// newTestRentalService builds the rental service over the in-memory store
// with a tick period long enough that no real ticks fire during a test.
// Ticks are driven manually through the clock.
func newTestRentalService(t *testing.T) (*rentalService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := NewRentalService(
		store.RentalRepository,
		store.HistoryRepository,
		store.GameRepository,
		3,
		time.Hour,
		time.Hour,
	).(*rentalService)
	t.Cleanup(svc.Shutdown)
	return svc, store
}

func addGame(t *testing.T, store *memory.Store, name, branchID string, available bool) *domain.Game {
	t.Helper()
	game := &domain.Game{Name: name, BranchID: branchID, Available: available, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.GameRepository.Create(context.Background(), game))
	return game
}

// tick advances one rental's clock by n minutes, as if n tick periods passed.
func tick(t *testing.T, svc *rentalService, key domain.RentalKey, n int) {
	t.Helper()
	svc.clock.mu.Lock()
	s, ok := svc.clock.sessions[key]
	svc.clock.mu.Unlock()
	require.True(t, ok, "no tracked session for %s", key.DocID())
	for i := 0; i < n; i++ {
		if minutes, stepped := svc.clock.step(s); stepped {
			svc.persistTick(key, minutes)
		}
	}
}

func TestResolveStartsNewRental(t *testing.T) {
	svc, store := newTestRentalService(t)
	game := addGame(t, store, "Chess", "b1", true)

	rental, err := svc.Resolve(context.Background(), "b1", game.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.RentalStatusActive, rental.Status)
	assert.Equal(t, int64(0), rental.TotalTime)
	assert.NotEmpty(t, rental.SessionID)
	assert.Empty(t, rental.EmployeeID, "self-service start has no employee attribution")
	assert.True(t, svc.clock.Tracked(rental.Key()), "new rental starts ticking")
}

func TestResolveIsIdempotentForActiveRental(t *testing.T) {
	svc, store := newTestRentalService(t)
	game := addGame(t, store, "Chess", "b1", true)

	first, err := svc.Resolve(context.Background(), "b1", game.ID)
	require.NoError(t, err)
	second, err := svc.Resolve(context.Background(), "b1", game.ID)
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID, "re-resolving must not start a new session")
}

func TestResolveRejectsUnknownOrUnavailableGame(t *testing.T) {
	svc, store := newTestRentalService(t)
	game := addGame(t, store, "Chess", "b1", true)
	broken := addGame(t, store, "Jenga", "b1", false)

	_, err := svc.Resolve(context.Background(), "b1", "no-such-game")
	assert.ErrorIs(t, err, ErrGameNotFound)

	_, err = svc.Resolve(context.Background(), "b2", game.ID)
	assert.ErrorIs(t, err, ErrGameNotFound, "a game is only rentable at its own branch")

	_, err = svc.Resolve(context.Background(), "b1", broken.ID)
	assert.ErrorIs(t, err, ErrGameUnavailable)
}

func TestTickingAndBilling(t *testing.T) {
	svc, store := newTestRentalService(t)
	game := addGame(t, store, "Chess", "b1", true)

	rental, err := svc.Resolve(context.Background(), "b1", game.ID)
	require.NoError(t, err)
	key := rental.Key()

	tick(t, svc, key, 3)

	current, err := svc.Resolve(context.Background(), "b1", game.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), current.TotalTime)

	stored, err := store.RentalRepository.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.TotalTime, "ticks persist the absolute total")

	ended, err := svc.End(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusCompleted, ended.Status)
	require.NotNil(t, ended.Cost)
	assert.Equal(t, int64(9), *ended.Cost, "3 minutes at 3 per minute")
	require.NotNil(t, ended.EndTime)
	assert.False(t, svc.clock.Tracked(key), "ended rental stops ticking")

	entries, err := store.HistoryRepository.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(9), entries[0].Cost)
	assert.Equal(t, rental.SessionID, entries[0].SessionID)
	assert.Equal(t, key.DocID(), entries[0].RentalID)
}

func TestPauseFreezesAccumulation(t *testing.T) {
	svc, store := newTestRentalService(t)
	game := addGame(t, store, "Chess", "b1", true)

	rental, err := svc.Resolve(context.Background(), "b1", game.ID)
	require.NoError(t, err)
	key := rental.Key()

	tick(t, svc, key, 2)
	require.NoError(t, svc.Pause(context.Background(), key))
	assert.True(t, svc.clock.Paused(key))

	tick(t, svc, key, 5) // ticks during pause are dropped

	minutes, ok := svc.clock.Minutes(key)
	require.True(t, ok)
	assert.Equal(t, int64(2), minutes)

	require.NoError(t, svc.Resume(context.Background(), key))
	tick(t, svc, key, 1)

	ended, err := svc.End(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), ended.TotalTime)
	assert.Equal(t, int64(9), *ended.Cost)
}

func TestEndIsIdempotent(t *testing.T) {
	svc, store := newTestRentalService(t)
	game := addGame(t, store, "Chess", "b1", true)

	rental, err := svc.Resolve(context.Background(), "b1", game.ID)
	require.NoError(t, err)
	key := rental.Key()
	tick(t, svc, key, 2)

	first, err := svc.End(context.Background(), key)
	require.NoError(t, err)
	second, err := svc.End(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, *first.Cost, *second.Cost)
	assert.Equal(t, first.SessionID, second.SessionID)

	entries, err := store.HistoryRepository.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "a repeated end must not archive a second entry")
}

func TestRescanStartsFreshSession(t *testing.T) {
	svc, store := newTestRentalService(t)
	game := addGame(t, store, "Chess", "b1", true)

	rental, err := svc.Resolve(context.Background(), "b1", game.ID)
	require.NoError(t, err)
	key := rental.Key()

	_, err = svc.Rescan(context.Background(), "b1", game.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "rescan is only valid on a completed slot")

	tick(t, svc, key, 1)
	_, err = svc.End(context.Background(), key)
	require.NoError(t, err)

	// A completed slot stays completed on plain resolve
	resolved, err := svc.Resolve(context.Background(), "b1", game.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusCompleted, resolved.Status)
	assert.Equal(t, rental.SessionID, resolved.SessionID)

	fresh, err := svc.Rescan(context.Background(), "b1", game.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusActive, fresh.Status)
	assert.Equal(t, int64(0), fresh.TotalTime)
	assert.NotEqual(t, rental.SessionID, fresh.SessionID)
	assert.Nil(t, fresh.Cost)

	other := addGame(t, store, "Go", "b1", true)
	_, err = svc.Rescan(context.Background(), "b1", other.ID)
	assert.ErrorIs(t, err, ErrRentalNotFound, "rescan needs an existing rental document")
}

func TestScanToggle(t *testing.T) {
	svc, store := newTestRentalService(t)
	game := addGame(t, store, "Chess", "b1", true)
	employee := &domain.User{UID: "emp1", Role: domain.RoleEmployee, BranchID: "b1"}
	payload := qr.Encode("http://localhost:3000", "b1", game.ID)

	started, err := svc.ScanToggle(context.Background(), employee, payload)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusActive, started.Status)
	assert.Equal(t, "emp1", started.EmployeeID, "employee-started rental carries attribution")

	tick(t, svc, started.Key(), 2)

	ended, err := svc.ScanToggle(context.Background(), employee, payload)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusCompleted, ended.Status)
	assert.Equal(t, int64(6), *ended.Cost)

	// A third scan is the explicit restart on a completed slot
	restarted, err := svc.ScanToggle(context.Background(), employee, payload)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusActive, restarted.Status)
	assert.NotEqual(t, started.SessionID, restarted.SessionID)

	entries, err := store.HistoryRepository.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestScanToggleRejectsWrongBranchAndBadPayload(t *testing.T) {
	svc, store := newTestRentalService(t)
	game := addGame(t, store, "Chess", "b1", true)
	payload := qr.Encode("http://localhost:3000", "b1", game.ID)

	outsider := &domain.User{UID: "emp2", Role: domain.RoleEmployee, BranchID: "b2"}
	_, err := svc.ScanToggle(context.Background(), outsider, payload)
	assert.ErrorIs(t, err, ErrBranchMismatch)

	insider := &domain.User{UID: "emp1", Role: domain.RoleEmployee, BranchID: "b1"}
	_, err = svc.ScanToggle(context.Background(), insider, "not-a-payload")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListByBranch(t *testing.T) {
	svc, store := newTestRentalService(t)
	chess := addGame(t, store, "Chess", "b1", true)
	jenga := addGame(t, store, "Jenga", "b1", true)
	addGame(t, store, "Darts", "b2", true)

	_, err := svc.Resolve(context.Background(), "b1", chess.ID)
	require.NoError(t, err)

	second, err := svc.Resolve(context.Background(), "b1", jenga.ID)
	require.NoError(t, err)
	tick(t, svc, second.Key(), 1)
	_, err = svc.End(context.Background(), second.Key())
	require.NoError(t, err)

	listing, err := svc.ListByBranch(context.Background(), "b1")
	require.NoError(t, err)

	require.Len(t, listing.Active, 1)
	assert.Equal(t, "Chess", listing.Active[0].GameName)
	require.Len(t, listing.History, 1)
	assert.Equal(t, "Jenga", listing.History[0].GameName)
	assert.Equal(t, int64(3), listing.History[0].Cost)

	empty, err := svc.ListByBranch(context.Background(), "b3")
	require.NoError(t, err)
	assert.Empty(t, empty.Active)
	assert.Empty(t, empty.History)
}

func TestStaleTickerCannotTouchCompletedRental(t *testing.T) {
	// Two service instances over one store, as when two processes both
	// track the same session. Once one of them completes the rental, the
	// other's ticks must bounce off the completed document and its clock
	// session must be dropped.
	store := memory.NewStore()
	newSvc := func() *rentalService {
		svc := NewRentalService(
			store.RentalRepository,
			store.HistoryRepository,
			store.GameRepository,
			3, time.Hour, time.Hour,
		).(*rentalService)
		t.Cleanup(svc.Shutdown)
		return svc
	}
	svcA := newSvc()
	svcB := newSvc()
	game := addGame(t, store, "Chess", "b1", true)

	rental, err := svcA.Resolve(context.Background(), "b1", game.ID)
	require.NoError(t, err)
	key := rental.Key()

	adopted, err := svcB.AdoptActiveSessions(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, adopted)

	tick(t, svcA, key, 2)
	ended, err := svcA.End(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, int64(6), *ended.Cost)

	tick(t, svcB, key, 1)

	stored, err := store.RentalRepository.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.TotalTime, "a stale tick must not advance a completed rental")
	assert.Equal(t, int64(6), *stored.Cost)
	assert.False(t, svcB.clock.Tracked(key), "the rejected tick drops the stale clock session")
}

func TestAdoptActiveSessions(t *testing.T) {
	store := memory.NewStore()
	orphan := &domain.Rental{
		SessionID: "s1",
		GameID:    "game1",
		BranchID:  "b1",
		StartTime: time.Now().UTC(),
		Status:    domain.RentalStatusActive,
		TotalTime: 7,
	}
	require.NoError(t, store.RentalRepository.Set(context.Background(), orphan))

	svc := NewRentalService(
		store.RentalRepository,
		store.HistoryRepository,
		store.GameRepository,
		3, time.Hour, time.Hour,
	).(*rentalService)
	defer svc.Shutdown()

	adopted, err := svc.AdoptActiveSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, adopted)

	minutes, ok := svc.clock.Minutes(orphan.Key())
	require.True(t, ok)
	assert.Equal(t, int64(7), minutes, "adoption resumes from the persisted total")

	again, err := svc.AdoptActiveSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again, "already tracked sessions are not re-adopted")
}
