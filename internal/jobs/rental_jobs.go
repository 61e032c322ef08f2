package jobs

import (
	"context"
	"time"

	"gamerental-backend/internal/logger"
)

// ReconcileActiveSessions surveys store-active rentals and reports sessions
// that look stalled (no tick persisted for several tick periods). It only
// observes: adoption into a ticking clock happens in the server process, at
// startup and lazily on access, never here.
func (jr *JobRunner) ReconcileActiveSessions() {
	jr.runWithRecovery("ReconcileActiveSessions", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		active, err := jr.rentals.ListActive(ctx)
		if err != nil {
			logger.Error("Failed to list active rentals", "error", err)
			return
		}
		if len(active) == 0 {
			return
		}

		tickPeriod := time.Duration(jr.config.Rental.TickSeconds) * time.Second
		staleAfter := 3 * tickPeriod
		now := time.Now().UTC()

		stalled := 0
		for _, rental := range active {
			expected := rental.StartTime.Add(time.Duration(rental.TotalTime)*time.Minute + staleAfter)
			if now.After(expected) {
				stalled++
				logger.Warn("Active rental has not ticked recently",
					"rental", rental.Key().DocID(),
					"session", rental.SessionID,
					"total_time", rental.TotalTime,
					"started", rental.StartTime)
			}
		}
		logger.Info("Active session survey", "active", len(active), "stalled", stalled)
	})
}

// SnapshotDailyRevenue builds the revenue report for the current day and
// persists it under its date.
func (jr *JobRunner) SnapshotDailyRevenue() {
	jr.runWithRecovery("SnapshotDailyRevenue", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		report, err := jr.services.Report.BuildDailyReport(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("Failed to build daily revenue report", "error", err)
			return
		}
		if err := jr.reports.Save(ctx, report); err != nil {
			logger.Error("Failed to save daily revenue report", "date", report.Date, "error", err)
			return
		}
		logger.Info("Daily revenue report saved",
			"date", report.Date,
			"daily_revenue", report.DailyRevenue,
			"employees", len(report.RevenueByEmployee))
	})
}
