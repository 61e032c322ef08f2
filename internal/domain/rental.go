package domain

import "time"

type RentalStatus string

const (
	RentalStatusActive    RentalStatus = "active"
	RentalStatusCompleted RentalStatus = "completed"
)

// RentalKey identifies the live rental slot for one game at one branch.
// There is at most one live rental document per key at any time.
type RentalKey struct {
	GameID   string
	BranchID string
}

// DocID returns the document ID of the live rental for this key.
func (k RentalKey) DocID() string {
	return k.GameID + "-" + k.BranchID
}

// Rental is one billable occupancy of a game by a customer. The live document
// is reused across sessions (keyed by game and branch); SessionID is unique
// per session and is carried into the history entry on completion.
type Rental struct {
	ID         string       `json:"id" firestore:"-"`
	SessionID  string       `json:"session_id" firestore:"sessionId"`
	GameID     string       `json:"game_id" firestore:"gameId"`
	BranchID   string       `json:"branch_id" firestore:"branchId"`
	EmployeeID string       `json:"employee_id,omitempty" firestore:"employeeId"`
	CustomerID string       `json:"customer_id" firestore:"customerId"`
	StartTime  time.Time    `json:"start_time" firestore:"startTime"`
	Status     RentalStatus `json:"status" firestore:"status"`
	TotalTime  int64        `json:"total_time" firestore:"totalTime"` // whole minutes
	Cost       *int64       `json:"cost,omitempty" firestore:"cost,omitempty"`
	EndTime    *time.Time   `json:"end_time,omitempty" firestore:"endTime,omitempty"`
}

func (r *Rental) Key() RentalKey {
	return RentalKey{GameID: r.GameID, BranchID: r.BranchID}
}

// rentalTransitions maps a lifecycle action to the statuses it may be applied
// from. Pause and resume are in-memory only; the persisted status stays active.
var rentalTransitions = map[string][]RentalStatus{
	"tick":   {RentalStatusActive},
	"pause":  {RentalStatusActive},
	"resume": {RentalStatusActive},
	"end":    {RentalStatusActive},
	"rescan": {RentalStatusCompleted},
}

func ValidTransition(action string, from RentalStatus) bool {
	allowed, ok := rentalTransitions[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == from {
			return true
		}
	}
	return false
}
