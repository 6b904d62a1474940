package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/fitgrid/franchise-dashboard/internal/analytics"
	"github.com/fitgrid/franchise-dashboard/internal/domain"
	"github.com/fitgrid/franchise-dashboard/internal/store"
)

// UserContextKey is the key for storing the authenticated user
type UserContextKey struct{}

var errMissingUser = errors.New("no user in request context")

// TenantProvider extracts the tenant identity from requests and resolves
// the data scope a user may read. Franchise lists are cached briefly so
// that every request does not hit the database.
type TenantProvider struct {
	franchises *store.FranchiseRepo

	cacheMutex sync.RWMutex
	cache      map[string]franchiseCacheEntry
	cacheTTL   time.Duration
}

type franchiseCacheEntry struct {
	franchises []domain.Franchise
	fetchedAt  time.Time
}

// NewTenantProvider creates a new provider
func NewTenantProvider(franchises *store.FranchiseRepo) *TenantProvider {
	return &TenantProvider{
		franchises: franchises,
		cache:      make(map[string]franchiseCacheEntry),
		cacheTTL:   30 * time.Second,
	}
}

// Middleware extracts the user identity headers and stores a domain.User
// in the request context. Requests without an account are rejected.
func (p *TenantProvider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := r.Header.Get("X-Account-ID")
		if accountID == "" {
			respondError(w, http.StatusUnauthorized, "missing account")
			return
		}

		role := domain.Role(r.Header.Get("X-User-Role"))
		if role != domain.RoleOwner && role != domain.RoleStaff {
			role = domain.RoleStaff
		}

		user := domain.User{
			ID:          r.Header.Get("X-User-ID"),
			AccountID:   accountID,
			FranchiseID: r.Header.Get("X-Franchise-ID"),
			Role:        role,
		}
		if user.Role == domain.RoleStaff && user.FranchiseID == "" {
			respondError(w, http.StatusForbidden, "staff user has no franchise")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userFromRequest returns the authenticated user placed by Middleware.
func userFromRequest(r *http.Request) (domain.User, bool) {
	user, ok := r.Context().Value(UserContextKey{}).(domain.User)
	return user, ok
}

// ResolveScope builds the data scope for a request, honouring an optional
// franchise_id query parameter. Staff users are always pinned to their own
// franchise regardless of what they ask for.
func (p *TenantProvider) ResolveScope(r *http.Request) (domain.Scope, error) {
	user, ok := userFromRequest(r)
	if !ok {
		return domain.Scope{}, errMissingUser
	}

	accountFranchises, err := p.accountFranchises(r.Context(), user.AccountID)
	if err != nil {
		return domain.Scope{}, err
	}

	requested := r.URL.Query().Get("franchise_id")
	return analytics.ResolveScope(user, requested, accountFranchises), nil
}

func (p *TenantProvider) accountFranchises(ctx context.Context, accountID string) ([]domain.Franchise, error) {
	p.cacheMutex.RLock()
	entry, ok := p.cache[accountID]
	p.cacheMutex.RUnlock()
	if ok && time.Since(entry.fetchedAt) < p.cacheTTL {
		return entry.franchises, nil
	}

	franchises, err := p.franchises.ByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	p.cacheMutex.Lock()
	p.cache[accountID] = franchiseCacheEntry{franchises: franchises, fetchedAt: time.Now()}
	p.cacheMutex.Unlock()
	return franchises, nil
}
