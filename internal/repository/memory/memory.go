// Package memory implements the repositories on in-process maps. It backs
// the "memory" store type for local development and is the store used by
// tests. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/repository"
)

// Store bundles the in-memory repositories over one shared state.
type Store struct {
	RentalRepository  repository.RentalRepository
	HistoryRepository repository.HistoryRepository
	GameRepository    repository.GameRepository
	UserRepository    repository.UserRepository
	ReportRepository  repository.ReportRepository

	state *state
}

type state struct {
	mu      sync.RWMutex
	rentals map[string]domain.Rental
	history map[string]domain.HistoryEntry
	games   map[string]domain.Game
	users   map[string]domain.User
	reports map[string]domain.RevenueReport
	nextID  int

	rentalWatchers  map[int]chan []domain.Rental
	historyWatchers map[int]chan []domain.HistoryEntry
	nextWatcher     int
}

func NewStore() *Store {
	st := &state{
		rentals:         make(map[string]domain.Rental),
		history:         make(map[string]domain.HistoryEntry),
		games:           make(map[string]domain.Game),
		users:           make(map[string]domain.User),
		reports:         make(map[string]domain.RevenueReport),
		rentalWatchers:  make(map[int]chan []domain.Rental),
		historyWatchers: make(map[int]chan []domain.HistoryEntry),
	}
	return &Store{
		RentalRepository:  &rentalRepo{st},
		HistoryRepository: &historyRepo{st},
		GameRepository:    &gameRepo{st},
		UserRepository:    &userRepo{st},
		ReportRepository:  &reportRepo{st},
		state:             st,
	}
}

// genID must be called with the lock held.
func (s *state) genID(prefix string) string {
	s.nextID++
	return prefix + strconv.Itoa(s.nextID)
}

// notifyRentals must be called with the lock held.
func (s *state) notifyRentals() {
	snapshot := s.rentalSlice()
	for _, ch := range s.rentalWatchers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// notifyHistory must be called with the lock held.
func (s *state) notifyHistory() {
	snapshot := s.historySlice()
	for _, ch := range s.historyWatchers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func (s *state) rentalSlice() []domain.Rental {
	out := make([]domain.Rental, 0, len(s.rentals))
	for _, r := range s.rentals {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *state) historySlice() []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, 0, len(s.history))
	for _, e := range s.history {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type rentalRepo struct{ s *state }

func (r *rentalRepo) Get(ctx context.Context, key domain.RentalKey) (*domain.Rental, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rental, ok := r.s.rentals[key.DocID()]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rental, nil
}

func (r *rentalRepo) Set(ctx context.Context, rental *domain.Rental) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rental.ID = rental.Key().DocID()
	r.s.rentals[rental.ID] = *rental
	r.s.notifyRentals()
	return nil
}

func (r *rentalRepo) UpdateTotalTime(ctx context.Context, key domain.RentalKey, minutes int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rental, ok := r.s.rentals[key.DocID()]
	if !ok {
		return repository.ErrNotFound
	}
	if rental.Status != domain.RentalStatusActive {
		return repository.ErrNotActive
	}
	rental.TotalTime = minutes
	r.s.rentals[key.DocID()] = rental
	r.s.notifyRentals()
	return nil
}

func (r *rentalRepo) CompleteIfActive(ctx context.Context, key domain.RentalKey, finalize func(*domain.Rental)) (*domain.Rental, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rental, ok := r.s.rentals[key.DocID()]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	if rental.Status != domain.RentalStatusActive {
		return &rental, false, nil
	}
	finalize(&rental)
	r.s.rentals[key.DocID()] = rental
	r.s.notifyRentals()
	return &rental, true, nil
}

func (r *rentalRepo) List(ctx context.Context) ([]domain.Rental, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.rentalSlice(), nil
}

func (r *rentalRepo) ListByBranch(ctx context.Context, branchID string) ([]domain.Rental, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Rental
	for _, rental := range r.s.rentalSlice() {
		if rental.BranchID == branchID {
			out = append(out, rental)
		}
	}
	return out, nil
}

func (r *rentalRepo) ListActive(ctx context.Context) ([]domain.Rental, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Rental
	for _, rental := range r.s.rentalSlice() {
		if rental.Status == domain.RentalStatusActive {
			out = append(out, rental)
		}
	}
	return out, nil
}

func (r *rentalRepo) Watch(ctx context.Context) (<-chan []domain.Rental, func(), error) {
	r.s.mu.Lock()
	id := r.s.nextWatcher
	r.s.nextWatcher++
	ch := make(chan []domain.Rental, 1)
	ch <- r.s.rentalSlice()
	r.s.rentalWatchers[id] = ch
	r.s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.s.mu.Lock()
			delete(r.s.rentalWatchers, id)
			close(ch)
			r.s.mu.Unlock()
		})
	}
	return ch, cancel, nil
}

type historyRepo struct{ s *state }

func (r *historyRepo) Add(ctx context.Context, entry *domain.HistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.genID("hist")
	r.s.history[entry.ID] = *entry
	r.s.notifyHistory()
	return nil
}

func (r *historyRepo) List(ctx context.Context) ([]domain.HistoryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.historySlice(), nil
}

func (r *historyRepo) ListByBranch(ctx context.Context, branchID string) ([]domain.HistoryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.HistoryEntry
	for _, entry := range r.s.historySlice() {
		if entry.BranchID == branchID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *historyRepo) Watch(ctx context.Context) (<-chan []domain.HistoryEntry, func(), error) {
	r.s.mu.Lock()
	id := r.s.nextWatcher
	r.s.nextWatcher++
	ch := make(chan []domain.HistoryEntry, 1)
	ch <- r.s.historySlice()
	r.s.historyWatchers[id] = ch
	r.s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.s.mu.Lock()
			delete(r.s.historyWatchers, id)
			close(ch)
			r.s.mu.Unlock()
		})
	}
	return ch, cancel, nil
}

type gameRepo struct{ s *state }

func (r *gameRepo) Create(ctx context.Context, game *domain.Game) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	game.ID = r.s.genID("game")
	r.s.games[game.ID] = *game
	return nil
}

func (r *gameRepo) GetByID(ctx context.Context, id string) (*domain.Game, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	game, ok := r.s.games[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &game, nil
}

func (r *gameRepo) Update(ctx context.Context, game *domain.Game) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.games[game.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.games[game.ID] = *game
	return nil
}

func (r *gameRepo) List(ctx context.Context) ([]domain.Game, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Game, 0, len(r.s.games))
	for _, game := range r.s.games {
		out = append(out, game)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *gameRepo) ListByBranch(ctx context.Context, branchID string) ([]domain.Game, error) {
	games, _ := r.List(ctx)
	var out []domain.Game
	for _, game := range games {
		if game.BranchID == branchID {
			out = append(out, game)
		}
	}
	return out, nil
}

type userRepo struct{ s *state }

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[user.UID] = *user
	return nil
}

func (r *userRepo) GetByUID(ctx context.Context, uid string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type reportRepo struct{ s *state }

func (r *reportRepo) Save(ctx context.Context, report *domain.RevenueReport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.reports[report.Date] = *report
	return nil
}

func (r *reportRepo) GetByDate(ctx context.Context, date string) (*domain.RevenueReport, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	report, ok := r.s.reports[date]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &report, nil
}
