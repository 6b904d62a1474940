package analytics

import "github.com/fitgrid/franchise-dashboard/internal/domain"

// ScopeAll is the requested-franchise value meaning "every franchise under
// the account".
const ScopeAll = "all"

// ResolveScope decides which franchises a request may aggregate over, before
// any fetch happens.
//
// Owners may ask for all franchises or any single franchise under their
// account; a request for a franchise outside the account falls back to the
// full account scope rather than leaking into another tenant. Non-owners are
// always pinned to their assigned franchise, whatever they ask for.
func ResolveScope(user domain.User, requested string, accountFranchises []domain.Franchise) domain.Scope {
	if user.Role != domain.RoleOwner {
		return domain.Scope{
			AccountID:    user.AccountID,
			FranchiseIDs: []string{user.FranchiseID},
		}
	}

	all := make([]string, 0, len(accountFranchises))
	for _, f := range accountFranchises {
		all = append(all, f.ID)
	}

	if requested != "" && requested != ScopeAll {
		for _, id := range all {
			if id == requested {
				return domain.Scope{AccountID: user.AccountID, FranchiseIDs: []string{id}}
			}
		}
	}
	return domain.Scope{AccountID: user.AccountID, FranchiseIDs: all}
}
