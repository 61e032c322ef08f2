package domain

import "time"

// Game is a catalog entity owned by the admin console. The rental lifecycle
// only reads it: a one-time existence and availability check on scan, and a
// name join for listings.
type Game struct {
	ID        string    `json:"id" firestore:"-"`
	Name      string    `json:"name" firestore:"name"`
	BranchID  string    `json:"branch_id" firestore:"branchId"`
	Available bool      `json:"available" firestore:"available"`
	QRPayload string    `json:"qr_payload,omitempty" firestore:"qrPayload"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}
