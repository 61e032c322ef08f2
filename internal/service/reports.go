package service

import (
	"context"
	"sync"
	"time"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/logger"
	"gamerental-backend/internal/repository"
)

type reportService struct {
	rentals repository.RentalRepository
	history repository.HistoryRepository
	games   repository.GameRepository

	mu          sync.RWMutex
	liveSnap    []domain.Rental
	historySnap []domain.HistoryEntry
	subscribed  bool

	cancels []func()
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewReportService(
	rentals repository.RentalRepository,
	history repository.HistoryRepository,
	games repository.GameRepository,
) ReportService {
	return &reportService{
		rentals: rentals,
		history: history,
		games:   games,
		done:    make(chan struct{}),
	}
}

// Start subscribes to both collections so report reads serve from the latest
// pushed snapshots instead of querying per request.
func (s *reportService) Start(ctx context.Context) error {
	rentalCh, cancelRentals, err := s.rentals.Watch(ctx)
	if err != nil {
		return err
	}
	historyCh, cancelHistory, err := s.history.Watch(ctx)
	if err != nil {
		cancelRentals()
		return err
	}
	s.cancels = []func(){cancelRentals, cancelHistory}

	s.mu.Lock()
	s.subscribed = true
	s.mu.Unlock()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.done:
				return
			case snap, ok := <-rentalCh:
				if !ok {
					return
				}
				s.mu.Lock()
				s.liveSnap = snap
				s.mu.Unlock()
			}
		}
	}()
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.done:
				return
			case snap, ok := <-historyCh:
				if !ok {
					return
				}
				s.mu.Lock()
				s.historySnap = snap
				s.mu.Unlock()
			}
		}
	}()

	logger.Info("Report service subscribed to rental and history streams")
	return nil
}

func (s *reportService) Stop() {
	close(s.done)
	for _, cancel := range s.cancels {
		cancel()
	}
	s.wg.Wait()
}

// entries returns the completed-session set: the pushed snapshot when
// subscribed, a direct query otherwise.
func (s *reportService) entries(ctx context.Context) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	if s.subscribed {
		snap := s.historySnap
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()
	return s.history.List(ctx)
}

func (s *reportService) live(ctx context.Context) ([]domain.Rental, error) {
	s.mu.RLock()
	if s.subscribed {
		snap := s.liveSnap
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()
	return s.rentals.List(ctx)
}

func (s *reportService) RevenueByEmployee(ctx context.Context, window time.Duration) (map[string]int64, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	return RevenueByEmployee(FilterWindow(entries, time.Now().UTC(), window)), nil
}

func (s *reportService) TopGames(ctx context.Context, window time.Duration, n int) ([]domain.GameUsage, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	live, err := s.live(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	usage := TopGames(
		FilterWindow(entries, now, window),
		FilterRentalsWindow(live, now, window),
		n,
	)
	s.joinNames(ctx, usage)
	return usage, nil
}

// joinNames fills in display names from the catalog. Unknown games keep an
// empty name rather than failing the report.
func (s *reportService) joinNames(ctx context.Context, usage []domain.GameUsage) {
	if len(usage) == 0 {
		return
	}
	games, err := s.games.List(ctx)
	if err != nil {
		logger.Warn("Failed to load game catalog for report name join", "error", err)
		return
	}
	names := make(map[string]string, len(games))
	for _, g := range games {
		names[g.ID] = g.Name
	}
	for i := range usage {
		usage[i].Name = names[usage[i].GameID]
	}
}

// BuildDailyReport assembles the snapshot persisted by the nightly job. The
// report always queries the store directly so the archived numbers are not
// subject to stream lag.
func (s *reportService) BuildDailyReport(ctx context.Context, now time.Time) (*domain.RevenueReport, error) {
	entries, err := s.history.List(ctx)
	if err != nil {
		return nil, err
	}
	live, err := s.rentals.List(ctx)
	if err != nil {
		return nil, err
	}

	daily := FilterWindow(entries, now, WindowDaily)
	weekly := FilterWindow(entries, now, WindowWeekly)
	monthly := FilterWindow(entries, now, WindowMonthly)

	usage := TopGames(daily, FilterRentalsWindow(live, now, WindowDaily), 5)
	s.joinNames(ctx, usage)

	report := &domain.RevenueReport{
		Date:              now.UTC().Format("2006-01-02"),
		GeneratedAt:       now.UTC(),
		DailyRevenue:      TotalRevenue(daily),
		WeeklyRevenue:     TotalRevenue(weekly),
		MonthlyRevenue:    TotalRevenue(monthly),
		RevenueByEmployee: RevenueByEmployee(daily),
		TopGames:          usage,
	}
	return report, nil
}
