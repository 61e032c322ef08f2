package service

import (
	"sort"
	"time"

	"gamerental-backend/internal/domain"
)

// Reporting windows. The monthly window is a fixed 30 days, not
// calendar-month aware.
const (
	WindowDaily   = 24 * time.Hour
	WindowWeekly  = 7 * 24 * time.Hour
	WindowMonthly = 30 * 24 * time.Hour
)

// Cost computes the price of a session: whole minutes times the per-minute
// rate. Negative inputs are clamped to zero.
func Cost(minutes, rate int64) int64 {
	if minutes <= 0 || rate <= 0 {
		return 0
	}
	return minutes * rate
}

// RevenueByEmployee sums completed-session cost per employee. Sessions with
// no employee attribution (self-service) are excluded, as are records whose
// employee ID is the literal "undefined" left behind by malformed writes.
func RevenueByEmployee(entries []domain.HistoryEntry) map[string]int64 {
	revenue := make(map[string]int64)
	for _, e := range entries {
		if e.EmployeeID == "" || e.EmployeeID == "undefined" {
			continue
		}
		revenue[e.EmployeeID] += e.Cost
	}
	return revenue
}

// TotalRevenue sums cost over all completed sessions, attributed or not.
func TotalRevenue(entries []domain.HistoryEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Cost
	}
	return total
}

// FilterWindow keeps the completed sessions whose start time falls inside
// the window ending at now. A non-positive window means no filtering.
func FilterWindow(entries []domain.HistoryEntry, now time.Time, window time.Duration) []domain.HistoryEntry {
	if window <= 0 {
		return entries
	}
	cutoff := now.Add(-window)
	var out []domain.HistoryEntry
	for _, e := range entries {
		if e.StartTime.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// FilterRentalsWindow keeps the live rentals whose start time falls inside
// the window ending at now. A non-positive window means no filtering.
func FilterRentalsWindow(rentals []domain.Rental, now time.Time, window time.Duration) []domain.Rental {
	if window <= 0 {
		return rentals
	}
	cutoff := now.Add(-window)
	var out []domain.Rental
	for _, r := range rentals {
		if r.StartTime.After(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// TopGames ranks games by session count across archived and live rentals,
// truncated to n. Ties break on game ID for a stable ordering. Names are
// left for the caller to join from the catalog.
func TopGames(entries []domain.HistoryEntry, live []domain.Rental, n int) []domain.GameUsage {
	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.GameID]++
	}
	for _, r := range live {
		counts[r.GameID]++
	}

	usage := make([]domain.GameUsage, 0, len(counts))
	for gameID, c := range counts {
		usage = append(usage, domain.GameUsage{GameID: gameID, Rentals: c})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Rentals != usage[j].Rentals {
			return usage[i].Rentals > usage[j].Rentals
		}
		return usage[i].GameID < usage[j].GameID
	})
	if n > 0 && len(usage) > n {
		usage = usage[:n]
	}
	return usage
}
