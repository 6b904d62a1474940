package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
)

// ImportJobRepo persists import job records. The batch processor is the only
// writer for a given job; readers poll these rows for progress.
type ImportJobRepo struct{ db *sql.DB }

// NewImportJobRepo creates a Postgres-backed import job repository.
func NewImportJobRepo(db *sql.DB) *ImportJobRepo { return &ImportJobRepo{db: db} }

// Create inserts a new job in status pending.
func (r *ImportJobRepo) Create(ctx context.Context, j *domain.ImportJob) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	mappingJSON, err := json.Marshal(j.Mapping)
	if err != nil {
		return fmt.Errorf("marshal column mapping: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO import_jobs
			(id, account_id, franchise_id, uploaded_by, file_name, file_url,
			 status, total_rows, processed_rows, success_count, error_count,
			 logs, column_mapping, date_format, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,0,0,$9,$10,$11,NOW())
	`, j.ID, j.AccountID, j.FranchiseID, j.UploadedBy, j.FileName, j.FileURL,
		j.Status, j.TotalRows, pq.Array(j.Logs), mappingJSON, j.DateFormat)
	if err != nil {
		return fmt.Errorf("create import job: %w", err)
	}
	return nil
}

// Get fetches one job inside the scope.
func (r *ImportJobRepo) Get(ctx context.Context, scope domain.Scope, id string) (*domain.ImportJob, error) {
	j := &domain.ImportJob{}
	var mappingJSON []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, franchise_id, uploaded_by, file_name, COALESCE(file_url,''),
		       status, total_rows, processed_rows, success_count, error_count,
		       logs, column_mapping, COALESCE(date_format,''), created_at, completed_at
		FROM import_jobs
		WHERE id = $1 AND account_id = $2 AND franchise_id = ANY($3)
	`, id, scope.AccountID, pq.Array(scope.FranchiseIDs)).Scan(
		&j.ID, &j.AccountID, &j.FranchiseID, &j.UploadedBy, &j.FileName, &j.FileURL,
		&j.Status, &j.TotalRows, &j.Processed, &j.Succeeded, &j.Failed,
		pq.Array(&j.Logs), &mappingJSON, &j.DateFormat, &j.CreatedAt, &j.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import job: %w", err)
	}
	if len(mappingJSON) > 0 {
		if err := json.Unmarshal(mappingJSON, &j.Mapping); err != nil {
			return nil, fmt.Errorf("unmarshal column mapping: %w", err)
		}
	}
	return j, nil
}

// ListRecent returns the most recent jobs inside the scope.
func (r *ImportJobRepo) ListRecent(ctx context.Context, scope domain.Scope, limit int) ([]domain.ImportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, franchise_id, uploaded_by, file_name, COALESCE(file_url,''),
		       status, total_rows, processed_rows, success_count, error_count,
		       COALESCE(date_format,''), created_at, completed_at
		FROM import_jobs
		WHERE account_id = $1 AND franchise_id = ANY($2)
		ORDER BY created_at DESC
		LIMIT $3
	`, scope.AccountID, pq.Array(scope.FranchiseIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("list import jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.ImportJob
	for rows.Next() {
		var j domain.ImportJob
		if err := rows.Scan(
			&j.ID, &j.AccountID, &j.FranchiseID, &j.UploadedBy, &j.FileName, &j.FileURL,
			&j.Status, &j.TotalRows, &j.Processed, &j.Succeeded, &j.Failed,
			&j.DateFormat, &j.CreatedAt, &j.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan import job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// MarkProcessing transitions pending -> processing. The WHERE clause guards
// the forward-only status invariant.
func (r *ImportJobRepo) MarkProcessing(ctx context.Context, id string, totalRows int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = 'processing', total_rows = $2
		WHERE id = $1 AND status = 'pending'
	`, id, totalRows)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark processing: job %s not in pending", id)
	}
	return nil
}

// UpdateProgress persists incremental counters and the bounded log tail.
func (r *ImportJobRepo) UpdateProgress(ctx context.Context, id string, processed, succeeded, failed int, logTail []string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE import_jobs
		SET processed_rows = $2, success_count = $3, error_count = $4, logs = $5
		WHERE id = $1 AND status = 'processing'
	`, id, processed, succeeded, failed, pq.Array(logTail))
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// Finish moves a job to a terminal status with final counters. Pending is a
// valid source state: a job that never made it into processing still has to
// land somewhere inspectable.
func (r *ImportJobRepo) Finish(ctx context.Context, id string, status domain.ImportStatus, processed, succeeded, failed int, logTail []string) error {
	if status != domain.ImportCompleted && status != domain.ImportFailed {
		return fmt.Errorf("finish: %q is not a terminal status", status)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = $2, processed_rows = $3, success_count = $4, error_count = $5,
		    logs = $6, completed_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'processing')
	`, id, status, processed, succeeded, failed, pq.Array(logTail))
	if err != nil {
		return fmt.Errorf("finish import job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish import job: job %s already terminal", id)
	}
	return nil
}
