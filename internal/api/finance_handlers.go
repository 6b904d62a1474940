package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
)

var (
	errFranchiseRequired     = errors.New("franchise_id is required")
	errFranchiseNotInAccount = errors.New("franchise not found in account")
)

// HandleListPlans returns the membership plans visible to the caller.
func (h *Handlers) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	scope, err := h.tenants.ResolveScope(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	plans, err := h.plans.ByScope(r.Context(), scope)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
}

// HandleCreatePlan creates a membership plan for one franchise.
func (h *Handlers) HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user")
		return
	}

	var req struct {
		Name         string  `json:"name"`
		Price        float64 `json:"price"`
		DurationDays int     `json:"duration_days"`
		FranchiseID  string  `json:"franchise_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Price < 0 {
		respondError(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	franchiseID, err := h.writeFranchise(r, user, req.FranchiseID)
	if err != nil {
		respondError(w, http.StatusForbidden, err.Error())
		return
	}

	plan := &domain.MembershipPlan{
		AccountID:    user.AccountID,
		FranchiseID:  franchiseID,
		Name:         req.Name,
		Price:        req.Price,
		DurationDays: req.DurationDays,
	}
	if err := h.plans.Create(r.Context(), plan); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, plan)
}

// HandleListPayments returns payments inside the requested window.
func (h *Handlers) HandleListPayments(w http.ResponseWriter, r *http.Request) {
	scope, err := h.tenants.ResolveScope(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	dr, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date range: "+err.Error())
		return
	}

	payments, err := h.payments.InWindow(r.Context(), scope, dr.From, dr.To.AddDate(0, 0, 1))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"payments": payments})
}

// HandleCreatePayment records one payment.
func (h *Handlers) HandleCreatePayment(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user")
		return
	}

	var req struct {
		MemberID    *string    `json:"member_id"`
		PlanID      *string    `json:"plan_id"`
		Amount      float64    `json:"amount"`
		FinalAmount *float64   `json:"final_amount"`
		Method      string     `json:"method"`
		PaidAt      *time.Time `json:"paid_at"`
		FranchiseID string     `json:"franchise_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount < 0 {
		respondError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}

	franchiseID, err := h.writeFranchise(r, user, req.FranchiseID)
	if err != nil {
		respondError(w, http.StatusForbidden, err.Error())
		return
	}

	payment := &domain.Payment{
		AccountID:   user.AccountID,
		FranchiseID: franchiseID,
		MemberID:    req.MemberID,
		PlanID:      req.PlanID,
		Amount:      req.Amount,
		FinalAmount: req.FinalAmount,
		Method:      req.Method,
		PaidAt:      time.Now().UTC(),
	}
	if req.PaidAt != nil {
		payment.PaidAt = *req.PaidAt
	}

	if err := h.payments.Insert(r.Context(), payment); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, payment)
}

// HandleListExpenses returns expenses inside the requested window.
func (h *Handlers) HandleListExpenses(w http.ResponseWriter, r *http.Request) {
	scope, err := h.tenants.ResolveScope(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	dr, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date range: "+err.Error())
		return
	}

	expenses, err := h.expenses.InWindow(r.Context(), scope, dr.From, dr.To.AddDate(0, 0, 1))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"expenses": expenses})
}

// HandleCreateExpense records one expense.
func (h *Handlers) HandleCreateExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user")
		return
	}

	var req struct {
		Category    string     `json:"category"`
		Description string     `json:"description"`
		Amount      float64    `json:"amount"`
		ExpenseDate *time.Time `json:"expense_date"`
		FranchiseID string     `json:"franchise_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount < 0 {
		respondError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}

	franchiseID, err := h.writeFranchise(r, user, req.FranchiseID)
	if err != nil {
		respondError(w, http.StatusForbidden, err.Error())
		return
	}

	expense := &domain.Expense{
		AccountID:   user.AccountID,
		FranchiseID: franchiseID,
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		ExpenseDate: time.Now().UTC(),
	}
	if req.ExpenseDate != nil {
		expense.ExpenseDate = *req.ExpenseDate
	}

	if err := h.expenses.Insert(r.Context(), expense); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, expense)
}

// HandleListFranchises returns all franchises under the caller's account.
func (h *Handlers) HandleListFranchises(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user")
		return
	}

	franchises, err := h.franchises.ByAccount(r.Context(), user.AccountID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"franchises": franchises})
}

// HandleCreateFranchise adds a new location to the account. Owners only.
func (h *Handlers) HandleCreateFranchise(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user")
		return
	}
	if user.Role != domain.RoleOwner {
		respondError(w, http.StatusForbidden, "owner role required")
		return
	}

	var req struct {
		Name string `json:"name"`
		City string `json:"city"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	franchise := &domain.Franchise{
		AccountID: user.AccountID,
		Name:      req.Name,
		City:      req.City,
	}
	if err := h.franchises.Create(r.Context(), franchise); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, franchise)
}

// writeFranchise decides which franchise a write lands in. Staff always write
// to their own; owners pick one and it must belong to the account.
func (h *Handlers) writeFranchise(r *http.Request, user domain.User, requested string) (string, error) {
	if user.Role != domain.RoleOwner {
		return user.FranchiseID, nil
	}
	if requested == "" {
		return "", errFranchiseRequired
	}

	scope, err := h.tenants.ResolveScope(r)
	if err != nil {
		return "", err
	}
	if !scope.Covers(requested) {
		return "", errFranchiseNotInAccount
	}
	return requested, nil
}
