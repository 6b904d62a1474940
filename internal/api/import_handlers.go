package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
	"github.com/fitgrid/franchise-dashboard/internal/importer"
	"github.com/fitgrid/franchise-dashboard/internal/store"
)

// HandleImportPreview accepts a multipart CSV upload, validates it, and
// returns the detected headers, a sample of rows, and a suggested mapping.
// Nothing is persisted at this stage.
func (h *Handlers) HandleImportPreview(w http.ResponseWriter, r *http.Request) {
	fileName, data, err := readUploadedFile(r, h.config.Import.MaxFileSize())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	prep, err := h.importer.Prepare(fileName, data)
	if err != nil {
		respondError(w, importStatusCode(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"file_name":    prep.FileName,
		"headers":      prep.Headers,
		"sample":       prep.Sample,
		"total_rows":   prep.TotalRows,
		"suggested":    prep.Suggested,
		"date_samples": importer.DateSamples(prep, prep.Suggested),
		"date_formats": importer.DateFormats(),
	})
}

// HandleImportStart accepts the CSV file plus the confirmed mapping and date
// format, creates the job, and returns 202 with its id. The import itself
// runs in the background; clients poll the job endpoint for the outcome.
func (h *Handlers) HandleImportStart(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user")
		return
	}

	fileName, data, err := readUploadedFile(r, h.config.Import.MaxFileSize())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var mapping domain.ColumnMapping
	if raw := r.FormValue("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			respondError(w, http.StatusBadRequest, "invalid mapping: "+err.Error())
			return
		}
	}

	prep, err := h.importer.Prepare(fileName, data)
	if err != nil {
		respondError(w, importStatusCode(err), err.Error())
		return
	}
	if mapping == nil {
		mapping = prep.Suggested
	}

	scope, err := h.scopeForImport(r, user)
	if err != nil {
		respondError(w, http.StatusForbidden, err.Error())
		return
	}

	job, err := h.importer.Start(r.Context(), scope, user.ID, prep, data, mapping, r.FormValue("date_format"))
	if err != nil {
		respondError(w, importStatusCode(err), err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, job)
}

// scopeForImport narrows the request to exactly one franchise. Staff import
// into their own franchise; owners must name one via the franchise_id form
// value.
func (h *Handlers) scopeForImport(r *http.Request, user domain.User) (domain.Scope, error) {
	if user.Role != domain.RoleOwner {
		return user.Scope(), nil
	}

	franchiseID := r.FormValue("franchise_id")
	if franchiseID == "" {
		return domain.Scope{}, importer.ErrFranchiseRequired
	}

	franchises, err := h.franchises.ByAccount(r.Context(), user.AccountID)
	if err != nil {
		return domain.Scope{}, err
	}
	for _, f := range franchises {
		if f.ID == franchiseID {
			return domain.Scope{AccountID: user.AccountID, FranchiseIDs: []string{franchiseID}}, nil
		}
	}
	return domain.Scope{}, errFranchiseNotInAccount
}

// HandleGetImportJob returns the persisted job record, including its log tail.
func (h *Handlers) HandleGetImportJob(w http.ResponseWriter, r *http.Request) {
	scope, err := h.tenants.ResolveScope(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	job, err := h.importer.Job(r.Context(), scope, chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "import job not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// HandleImportProgress returns the in-flight progress snapshot from Redis.
// Falls back to the database record when no live snapshot exists.
func (h *Handlers) HandleImportProgress(w http.ResponseWriter, r *http.Request) {
	scope, err := h.tenants.ResolveScope(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	jobID := chi.URLParam(r, "jobID")

	// Verify the caller can see this job before serving cached progress.
	job, err := h.importer.Job(r.Context(), scope, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "import job not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	progress, err := h.importer.LiveProgress(r.Context(), jobID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if progress == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"job_id":    job.ID,
			"status":    job.Status,
			"total":     job.TotalRows,
			"processed": job.Processed,
			"succeeded": job.Succeeded,
			"failed":    job.Failed,
		})
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

// HandleListImportJobs returns recent jobs visible to the caller.
func (h *Handlers) HandleListImportJobs(w http.ResponseWriter, r *http.Request) {
	scope, err := h.tenants.ResolveScope(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	jobs, err := h.importer.Jobs(r.Context(), scope, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// HandleCancelImport requests cooperative cancellation of a running import.
func (h *Handlers) HandleCancelImport(w http.ResponseWriter, r *http.Request) {
	scope, err := h.tenants.ResolveScope(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	jobID := chi.URLParam(r, "jobID")
	if _, err := h.importer.Job(r.Context(), scope, jobID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "import job not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !h.importer.Cancel(jobID) {
		respondError(w, http.StatusConflict, "import is not running")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

// readUploadedFile pulls the "file" part out of a multipart request.
func readUploadedFile(r *http.Request, maxSize int64) (string, []byte, error) {
	if err := r.ParseMultipartForm(maxSize + 1024); err != nil {
		return "", nil, errors.New("invalid multipart request")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, errors.New("missing file upload")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

// importStatusCode maps validation failures to 400 and everything else to 500.
func importStatusCode(err error) int {
	switch {
	case errors.Is(err, importer.ErrUnsupportedType),
		errors.Is(err, importer.ErrFileTooLarge),
		errors.Is(err, importer.ErrTooFewRows),
		errors.Is(err, importer.ErrNameColumnRequired),
		errors.Is(err, importer.ErrDateFormatRequired),
		errors.Is(err, importer.ErrUnknownDateFormat),
		errors.Is(err, importer.ErrFranchiseRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
