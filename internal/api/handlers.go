package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fitgrid/franchise-dashboard/internal/analytics"
	"github.com/fitgrid/franchise-dashboard/internal/config"
	"github.com/fitgrid/franchise-dashboard/internal/importer"
	"github.com/fitgrid/franchise-dashboard/internal/store"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	importer   *importer.Service
	aggregator *analytics.Aggregator
	members    *store.MemberRepo
	plans      *store.PlanRepo
	payments   *store.PaymentRepo
	expenses   *store.ExpenseRepo
	franchises *store.FranchiseRepo
	tenants    *TenantProvider
	config     *config.Config
}

// NewHandlers creates a new Handlers instance
func NewHandlers(imp *importer.Service, agg *analytics.Aggregator, cfg *config.Config) *Handlers {
	return &Handlers{
		importer:   imp,
		aggregator: agg,
		config:     cfg,
	}
}

// SetMemberRepo sets the member repository
func (h *Handlers) SetMemberRepo(repo *store.MemberRepo) {
	h.members = repo
}

// SetPlanRepo sets the membership plan repository
func (h *Handlers) SetPlanRepo(repo *store.PlanRepo) {
	h.plans = repo
}

// SetPaymentRepo sets the payment repository
func (h *Handlers) SetPaymentRepo(repo *store.PaymentRepo) {
	h.payments = repo
}

// SetExpenseRepo sets the expense repository
func (h *Handlers) SetExpenseRepo(repo *store.ExpenseRepo) {
	h.expenses = repo
}

// SetFranchiseRepo sets the franchise repository
func (h *Handlers) SetFranchiseRepo(repo *store.FranchiseRepo) {
	h.franchises = repo
}

// SetTenantProvider sets the tenant scope resolver
func (h *Handlers) SetTenantProvider(p *TenantProvider) {
	h.tenants = p
}

// HealthCheck returns service liveness
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// DateRange represents a reporting window for analytics queries
type DateRange struct {
	From time.Time
	To   time.Time
}

// parseDateRange extracts from/to query parameters (YYYY-MM-DD).
// Defaults to the current month when absent.
func parseDateRange(r *http.Request) (DateRange, error) {
	now := time.Now().UTC()
	dr := DateRange{
		From: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		To:   now,
	}

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return dr, err
		}
		dr.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return dr, err
		}
		dr.To = t
	}
	return dr, nil
}
