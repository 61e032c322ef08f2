package security

import "gamerental-backend/internal/domain"

// Principal is the authenticated caller of a request. Staff principals carry
// a UID plus role and branch; customer session principals carry only the
// rental they may drive.
type Principal struct {
	UID      string
	Email    string
	Role     domain.Role
	BranchID string

	// RentalID is set for customer session tokens and empty otherwise.
	RentalID string
}

// IsStaff reports whether the principal is a signed-in employee or admin.
func (p *Principal) IsStaff() bool {
	return p.Role == domain.RoleAdmin || p.Role == domain.RoleEmployee
}

// CanManageRental reports whether the principal may drive the rental with
// the given live document ID at the given branch.
func (p *Principal) CanManageRental(rentalDocID, branchID string) bool {
	if p.RentalID != "" && p.RentalID == rentalDocID {
		return true
	}
	if p.Role == domain.RoleAdmin {
		return true
	}
	return p.Role == domain.RoleEmployee && p.BranchID == branchID
}
