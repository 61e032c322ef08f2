package domain

import "time"

// GameUsage ranks one game by how many rental sessions it has seen.
type GameUsage struct {
	GameID  string `json:"game_id" firestore:"gameId"`
	Name    string `json:"name" firestore:"name"`
	Rentals int    `json:"rentals" firestore:"rentals"`
}

// RevenueReport is a persisted daily snapshot of the reporting aggregates,
// written by the cron runner. Doc ID is the report date (yyyy-mm-dd).
type RevenueReport struct {
	Date              string           `json:"date" firestore:"-"`
	GeneratedAt       time.Time        `json:"generated_at" firestore:"generatedAt"`
	DailyRevenue      int64            `json:"daily_revenue" firestore:"dailyRevenue"`
	WeeklyRevenue     int64            `json:"weekly_revenue" firestore:"weeklyRevenue"`
	MonthlyRevenue    int64            `json:"monthly_revenue" firestore:"monthlyRevenue"`
	RevenueByEmployee map[string]int64 `json:"revenue_by_employee" firestore:"revenueByEmployee"`
	TopGames          []GameUsage      `json:"top_games" firestore:"topGames"`
}
