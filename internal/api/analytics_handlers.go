package api

import "net/http"

// HandleDashboard computes the full analytics report for the caller's scope
// and the requested window. The report is recomputed on every request; there
// is no materialized state to drift out of date.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
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
	if dr.To.Before(dr.From) {
		respondError(w, http.StatusBadRequest, "to must not precede from")
		return
	}

	report := h.aggregator.Compute(r.Context(), scope, dr.From, dr.To)
	respondJSON(w, http.StatusOK, report)
}
