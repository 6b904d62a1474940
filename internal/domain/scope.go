package domain

// Role enumerates the access levels a platform user can hold.
type Role string

const (
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
)

// User is the authenticated caller as seen by this service. Authentication
// itself happens upstream; we only consume the resolved identity.
type User struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	FranchiseID string `json:"franchise_id"`
	Role        Role   `json:"role"`
}

// Scope returns the single-franchise scope for the user's own franchise.
func (u User) Scope() Scope {
	return Scope{AccountID: u.AccountID, FranchiseIDs: []string{u.FranchiseID}}
}

// Scope partitions every data access to one account and a set of franchises
// under it. Every repository call takes a Scope; there is no unscoped read or
// write anywhere in the system.
type Scope struct {
	AccountID    string   `json:"account_id"`
	FranchiseIDs []string `json:"franchise_ids"`
}

// SingleFranchise reports whether the scope covers exactly one franchise.
func (s Scope) SingleFranchise() bool { return len(s.FranchiseIDs) == 1 }

// Covers reports whether the given franchise id falls inside the scope.
func (s Scope) Covers(franchiseID string) bool {
	for _, id := range s.FranchiseIDs {
		if id == franchiseID {
			return true
		}
	}
	return false
}
