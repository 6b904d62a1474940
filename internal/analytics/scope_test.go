package analytics

import (
	"sort"
	"testing"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
)

func TestResolveScope(t *testing.T) {
	franchises := []domain.Franchise{
		{ID: "fr-1", AccountID: "acc-1", Name: "Downtown"},
		{ID: "fr-2", AccountID: "acc-1", Name: "Uptown"},
	}
	owner := domain.User{ID: "u1", AccountID: "acc-1", FranchiseID: "fr-1", Role: domain.RoleOwner}
	staff := domain.User{ID: "u2", AccountID: "acc-1", FranchiseID: "fr-2", Role: domain.RoleStaff}

	tests := []struct {
		name      string
		user      domain.User
		requested string
		want      []string
	}{
		{"owner default is whole account", owner, "", []string{"fr-1", "fr-2"}},
		{"owner all keyword", owner, ScopeAll, []string{"fr-1", "fr-2"}},
		{"owner picks one franchise", owner, "fr-2", []string{"fr-2"}},
		{"owner foreign franchise falls back to account", owner, "fr-999", []string{"fr-1", "fr-2"}},
		{"staff pinned to own franchise", staff, "", []string{"fr-2"}},
		{"staff cannot widen", staff, ScopeAll, []string{"fr-2"}},
		{"staff cannot switch franchise", staff, "fr-1", []string{"fr-2"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scope := ResolveScope(tc.user, tc.requested, franchises)
			if scope.AccountID != "acc-1" {
				t.Errorf("AccountID = %q, want acc-1", scope.AccountID)
			}
			got := append([]string(nil), scope.FranchiseIDs...)
			sort.Strings(got)
			if len(got) != len(tc.want) {
				t.Fatalf("FranchiseIDs = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("FranchiseIDs = %v, want %v", got, tc.want)
				}
			}
		})
	}
}
