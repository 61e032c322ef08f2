package domain

import "time"

// HistoryEntry is an immutable archival copy of a completed rental session.
// Entries are written exactly once, by the writer that completed the session,
// and are never mutated or deleted.
type HistoryEntry struct {
	ID         string    `json:"id" firestore:"-"`
	RentalID   string    `json:"rental_id" firestore:"rentalId"` // live-doc composite key
	SessionID  string    `json:"session_id" firestore:"sessionId"`
	GameID     string    `json:"game_id" firestore:"gameId"`
	BranchID   string    `json:"branch_id" firestore:"branchId"`
	EmployeeID string    `json:"employee_id,omitempty" firestore:"employeeId"`
	CustomerID string    `json:"customer_id" firestore:"customerId"`
	StartTime  time.Time `json:"start_time" firestore:"startTime"`
	TotalTime  int64     `json:"total_time" firestore:"totalTime"`
	Cost       int64     `json:"cost" firestore:"cost"`
	EndTime    time.Time `json:"end_time" firestore:"endTime"`
	ArchivedAt time.Time `json:"archived_at" firestore:"archivedAt"`
}

// NewHistoryEntry snapshots a completed rental into an archival entry.
func NewHistoryEntry(r *Rental, archivedAt time.Time) *HistoryEntry {
	e := &HistoryEntry{
		RentalID:   r.Key().DocID(),
		SessionID:  r.SessionID,
		GameID:     r.GameID,
		BranchID:   r.BranchID,
		EmployeeID: r.EmployeeID,
		CustomerID: r.CustomerID,
		StartTime:  r.StartTime,
		TotalTime:  r.TotalTime,
		ArchivedAt: archivedAt,
	}
	if r.Cost != nil {
		e.Cost = *r.Cost
	}
	if r.EndTime != nil {
		e.EndTime = *r.EndTime
	}
	return e
}
