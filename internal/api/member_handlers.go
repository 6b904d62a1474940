package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
	"github.com/fitgrid/franchise-dashboard/internal/store"
)

type memberRequest struct {
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Gender      string     `json:"gender"`
	DOB         *time.Time `json:"dob"`
	JoinDate    *time.Time `json:"join_date"`
	IsActive    *bool      `json:"is_active"`
	PlanID      *string    `json:"active_plan_id"`
	NextPayment *time.Time `json:"next_payment"`
	FranchiseID string     `json:"franchise_id"`
}

// HandleListMembers returns a filtered, paginated member list.
func (h *Handlers) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	scope, err := h.tenants.ResolveScope(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	q := r.URL.Query()
	filter := store.MemberFilter{
		Search: q.Get("search"),
		PlanID: q.Get("plan_id"),
	}
	if v := q.Get("active"); v != "" {
		active := v == "true"
		filter.Active = &active
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	members, total, err := h.members.List(r.Context(), scope, filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"members": members,
		"total":   total,
	})
}

// HandleGetMember fetches a single member inside the caller's scope.
func (h *Handlers) HandleGetMember(w http.ResponseWriter, r *http.Request) {
	scope, err := h.tenants.ResolveScope(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	member, err := h.members.Get(r.Context(), scope, chi.URLParam(r, "memberID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "member not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, member)
}

// HandleCreateMember creates one member. Staff create into their own
// franchise; owners must name a franchise inside the account.
func (h *Handlers) HandleCreateMember(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user")
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	franchiseID := user.FranchiseID
	if user.Role == domain.RoleOwner {
		if req.FranchiseID == "" {
			respondError(w, http.StatusBadRequest, "franchise_id is required")
			return
		}
		scope, err := h.tenants.ResolveScope(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if !scope.Covers(req.FranchiseID) {
			respondError(w, http.StatusForbidden, "franchise not in account")
			return
		}
		franchiseID = req.FranchiseID
	}

	member := &domain.Member{
		AccountID:   user.AccountID,
		FranchiseID: franchiseID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Gender:      req.Gender,
		DOB:         req.DOB,
		JoinDate:    time.Now().UTC(),
		IsActive:    true,
		PlanID:      req.PlanID,
		NextPayment: req.NextPayment,
	}
	if req.JoinDate != nil {
		member.JoinDate = *req.JoinDate
	}
	if req.IsActive != nil {
		member.IsActive = *req.IsActive
	}

	if err := h.members.Insert(r.Context(), member); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, member)
}

// HandleUpdateMember applies a partial update to one member.
func (h *Handlers) HandleUpdateMember(w http.ResponseWriter, r *http.Request) {
	scope, err := h.tenants.ResolveScope(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req struct {
		Name        *string    `json:"name"`
		Email       *string    `json:"email"`
		Phone       *string    `json:"phone"`
		Gender      *string    `json:"gender"`
		PlanID      *string    `json:"active_plan_id"`
		IsActive    *bool      `json:"is_active"`
		NextPayment *time.Time `json:"next_payment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	update := store.MemberUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Gender:   req.Gender,
		PlanID:   req.PlanID,
		IsActive: req.IsActive,
	}
	if req.NextPayment != nil {
		update.NextPayment = &sql.NullTime{Time: *req.NextPayment, Valid: true}
	}

	memberID := chi.URLParam(r, "memberID")
	if err := h.members.Update(r.Context(), scope, memberID, update); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "member not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	member, err := h.members.Get(r.Context(), scope, memberID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, member)
}

// HandleDeleteMember removes one member inside the caller's scope.
func (h *Handlers) HandleDeleteMember(w http.ResponseWriter, r *http.Request) {
	scope, err := h.tenants.ResolveScope(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if err := h.members.Delete(r.Context(), scope, chi.URLParam(r, "memberID")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "member not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
