package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
)

var jobScope = domain.Scope{AccountID: "acc-1", FranchiseIDs: []string{"fr-1"}}

func setupJobRepo(t *testing.T) (*ImportJobRepo, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	return NewImportJobRepo(db), mock, func() { db.Close() }
}

func TestImportJobRepo_Create(t *testing.T) {
	repo, mock, cleanup := setupJobRepo(t)
	defer cleanup()

	job := &domain.ImportJob{
		AccountID:   "acc-1",
		FranchiseID: "fr-1",
		UploadedBy:  "user-1",
		FileName:    "members.csv",
		Status:      domain.ImportPending,
		TotalRows:   10,
		Mapping:     domain.ColumnMapping{0: domain.FieldName, 1: domain.FieldDOB},
		DateFormat:  "dd/mm/yyyy",
		Logs:        []string{"Import created: 10 rows from members.csv"},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO import_jobs")).
		WithArgs(sqlmock.AnyArg(), "acc-1", "fr-1", "user-1", "members.csv", "",
			string(domain.ImportPending), 10, sqlmock.AnyArg(),
			// The mapping persists as a JSON object keyed by the string
			// column index.
			[]byte(`{"0":"name","1":"dob"}`), "dd/mm/yyyy").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if job.ID == "" {
		t.Error("Create() did not assign an id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestImportJobRepo_Get(t *testing.T) {
	repo, mock, cleanup := setupJobRepo(t)
	defer cleanup()

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{
		"id", "account_id", "franchise_id", "uploaded_by", "file_name", "file_url",
		"status", "total_rows", "processed_rows", "success_count", "error_count",
		"logs", "column_mapping", "date_format", "created_at", "completed_at",
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM import_jobs")).
		WithArgs("job-1", "acc-1", pq.Array([]string{"fr-1"})).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"job-1", "acc-1", "fr-1", "user-1", "members.csv", "",
			"processing", 10, 6, 5, 1,
			`{"Row 1: imported"}`, []byte(`{"0":"name"}`), "dd/mm/yyyy",
			created, nil,
		))

	job, err := repo.Get(context.Background(), jobScope, "job-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	if job.Status != domain.ImportProcessing {
		t.Errorf("Status = %s, want processing", job.Status)
	}
	if job.Processed != 6 || job.Succeeded != 5 || job.Failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 6/5/1", job.Processed, job.Succeeded, job.Failed)
	}
	if job.Mapping[0] != domain.FieldName {
		t.Errorf("Mapping = %v, want column 0 -> name", job.Mapping)
	}
	if len(job.Logs) != 1 || job.Logs[0] != "Row 1: imported" {
		t.Errorf("Logs = %v", job.Logs)
	}
	if job.CompletedAt != nil {
		t.Error("CompletedAt set on a non-terminal job")
	}
}

func TestImportJobRepo_Get_NotFound(t *testing.T) {
	repo, mock, cleanup := setupJobRepo(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM import_jobs")).
		WithArgs("missing", "acc-1", pq.Array([]string{"fr-1"})).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), jobScope, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestImportJobRepo_MarkProcessing_ForwardOnly(t *testing.T) {
	repo, mock, cleanup := setupJobRepo(t)
	defer cleanup()

	// Pending job transitions.
	mock.ExpectExec(regexp.QuoteMeta("status = 'processing'")).
		WithArgs("job-1", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.MarkProcessing(context.Background(), "job-1", 10); err != nil {
		t.Fatalf("MarkProcessing() error: %v", err)
	}

	// A job no longer pending matches zero rows and errors.
	mock.ExpectExec(regexp.QuoteMeta("status = 'processing'")).
		WithArgs("job-1", 10).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.MarkProcessing(context.Background(), "job-1", 10); err == nil {
		t.Error("MarkProcessing() on non-pending job succeeded, want error")
	}
}

func TestImportJobRepo_Finish(t *testing.T) {
	repo, mock, cleanup := setupJobRepo(t)
	defer cleanup()

	// Only terminal statuses are writable.
	if err := repo.Finish(context.Background(), "job-1", domain.ImportProcessing, 1, 1, 0, nil); err == nil {
		t.Error("Finish(processing) succeeded, want error")
	}

	mock.ExpectExec(regexp.QuoteMeta("completed_at = NOW()")).
		WithArgs("job-1", string(domain.ImportCompleted), 10, 9, 1, pq.Array([]string{"done"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Finish(context.Background(), "job-1", domain.ImportCompleted, 10, 9, 1, []string{"done"}); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestImportJobRepo_Finish_PendingJob(t *testing.T) {
	repo, mock, cleanup := setupJobRepo(t)
	defer cleanup()

	// A job that never left pending still lands in a terminal state.
	mock.ExpectExec(regexp.QuoteMeta("status IN ('pending', 'processing')")).
		WithArgs("job-1", string(domain.ImportFailed), 0, 0, 0,
			pq.Array([]string{"Import failed: could not start processing"})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Finish(context.Background(), "job-1", domain.ImportFailed, 0, 0, 0,
		[]string{"Import failed: could not start processing"})
	if err != nil {
		t.Fatalf("Finish() on pending job error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestImportJobRepo_Finish_AlreadyTerminalIsError(t *testing.T) {
	repo, mock, cleanup := setupJobRepo(t)
	defer cleanup()

	// Zero matched rows means the job was already terminal. That must surface
	// as an error, never a silent no-op.
	mock.ExpectExec(regexp.QuoteMeta("status IN ('pending', 'processing')")).
		WithArgs("job-1", string(domain.ImportFailed), 5, 5, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Finish(context.Background(), "job-1", domain.ImportFailed, 5, 5, 0, nil); err == nil {
		t.Error("Finish() on terminal job succeeded, want error")
	}
}
