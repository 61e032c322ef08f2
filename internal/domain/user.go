package domain

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// User is an identity entity keyed by the identity provider UID. The rental
// lifecycle reads it to attribute a rental's employee and to scope an
// employee's dashboard to their branch.
type User struct {
	UID       string    `json:"uid" firestore:"-"`
	Email     string    `json:"email" firestore:"email"`
	Name      string    `json:"name" firestore:"name"`
	Role      Role      `json:"role" firestore:"role"`
	BranchID  string    `json:"branch_id" firestore:"branchId"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`

	// PasswordHash is only populated in local auth mode; in firebase mode
	// credentials live with the identity provider.
	PasswordHash string `json:"-" firestore:"passwordHash,omitempty"`
}
