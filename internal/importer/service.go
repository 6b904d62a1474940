// Package importer implements the bulk member-import pipeline: CSV decode
// and preview, column auto-mapping, date-format resolution, and a throttled
// batch processor that records per-row outcomes on a persisted job record.
//
// The pipeline is fire-and-poll: starting an import returns the job id
// immediately and processing continues in the background. Callers observe
// progress by re-reading the job record (or the Redis progress snapshot)
// until it reaches a terminal status.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fitgrid/franchise-dashboard/internal/config"
	"github.com/fitgrid/franchise-dashboard/internal/domain"
	"github.com/fitgrid/franchise-dashboard/internal/pkg/logger"
)

const progressTTL = 24 * time.Hour

// JobStore persists import job records.
type JobStore interface {
	Create(ctx context.Context, j *domain.ImportJob) error
	Get(ctx context.Context, scope domain.Scope, id string) (*domain.ImportJob, error)
	ListRecent(ctx context.Context, scope domain.Scope, limit int) ([]domain.ImportJob, error)
	MarkProcessing(ctx context.Context, id string, totalRows int) error
	UpdateProgress(ctx context.Context, id string, processed, succeeded, failed int, logTail []string) error
	Finish(ctx context.Context, id string, status domain.ImportStatus, processed, succeeded, failed int, logTail []string) error
}

// MemberWriter inserts transformed member records.
type MemberWriter interface {
	Insert(ctx context.Context, m *domain.Member) error
}

// PlanSource lists the tenant's membership plans for plan-name resolution.
type PlanSource interface {
	ByScope(ctx context.Context, scope domain.Scope) ([]domain.MembershipPlan, error)
}

// BlobStore retains the original upload for audit. Optional; a nil BlobStore
// skips the audit copy.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Progress is the live snapshot written to Redis after every batch. The job
// row in Postgres stays the source of truth; this exists so that frequent
// polling does not hammer the database.
type Progress struct {
	JobID     string              `json:"job_id"`
	Status    domain.ImportStatus `json:"status"`
	TotalRows int                 `json:"total_rows"`
	Processed int                 `json:"processed_rows"`
	Succeeded int                 `json:"success_count"`
	Failed    int                 `json:"error_count"`
	Logs      []string            `json:"logs"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Service runs member imports.
type Service struct {
	jobs    JobStore
	members MemberWriter
	plans   PlanSource
	blobs   BlobStore
	redis   *redis.Client
	cfg     config.ImportConfig

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewService wires the import pipeline.
func NewService(jobs JobStore, members MemberWriter, plans PlanSource, blobs BlobStore, redisClient *redis.Client, cfg config.ImportConfig) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 3
	}
	if cfg.LogTail <= 0 {
		cfg.LogTail = 100
	}
	return &Service{
		jobs:    jobs,
		members: members,
		plans:   plans,
		blobs:   blobs,
		redis:   redisClient,
		cfg:     cfg,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Prepare decodes and validates an upload without starting anything.
func (s *Service) Prepare(fileName string, data []byte) (*Preview, error) {
	return ParseUpload(fileName, data, s.cfg.MaxFileSize(), s.cfg.PreviewRows)
}

// Start validates the confirmed mapping and date format, persists the job in
// status pending, uploads the audit copy, and launches the batch processor.
// It returns as soon as the job exists; callers poll for the outcome.
func (s *Service) Start(
	ctx context.Context,
	scope domain.Scope,
	uploadedBy string,
	prep *Preview,
	fileData []byte,
	mapping domain.ColumnMapping,
	dateFormatName string,
) (*domain.ImportJob, error) {
	if !scope.SingleFranchise() {
		return nil, ErrFranchiseRequired
	}
	if err := ValidateMapping(mapping); err != nil {
		return nil, err
	}

	var format *DateFormat
	if mapping.DateFieldsMapped() {
		if dateFormatName == "" {
			return nil, ErrDateFormatRequired
		}
		f, ok := LookupDateFormat(dateFormatName)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDateFormat, dateFormatName)
		}
		format = f
	}

	job := &domain.ImportJob{
		ID:          uuid.New().String(),
		AccountID:   scope.AccountID,
		FranchiseID: scope.FranchiseIDs[0],
		UploadedBy:  uploadedBy,
		FileName:    prep.FileName,
		Status:      domain.ImportPending,
		TotalRows:   prep.TotalRows,
		Mapping:     mapping,
		DateFormat:  dateFormatName,
		Logs:        []string{fmt.Sprintf("Import created: %d rows from %s", prep.TotalRows, prep.FileName)},
	}

	// Audit copy is best-effort; a blob store outage must not block imports.
	// Keyed by job id so repeat uploads of the same file never collide.
	if s.blobs != nil {
		key := fmt.Sprintf("imports/%s/%s/%s", scope.AccountID, job.ID, prep.FileName)
		url, err := s.blobs.Upload(ctx, key, fileData, "text/csv")
		if err != nil {
			logger.Warn("import audit upload failed", "error", err, "file", prep.FileName)
		} else {
			job.FileURL = url
		}
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("creating import job: %w", err)
	}

	// The cancel signal is separate from the context the processor writes
	// with: cancellation must never abort a row insert in flight.
	cancelCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	go s.run(context.Background(), cancelCtx.Done(), job.ID, scope, prep, mapping, format)

	return job, nil
}

// Cancel requests cooperative cancellation. The processor observes the
// request at batch boundaries only, so rows already handed to the writer
// complete before the job terminates.
func (s *Service) Cancel(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel, ok := s.cancels[jobID]
	if ok {
		cancel()
	}
	return ok
}

func (s *Service) removeCancel(jobID string) {
	s.mu.Lock()
	delete(s.cancels, jobID)
	s.mu.Unlock()
}

// run is the batch processor. Row errors are contained per row; anything
// escaping the loop marks the whole job failed. done carries the cancel
// request and is consulted only between batches.
func (s *Service) run(
	ctx context.Context,
	done <-chan struct{},
	jobID string,
	scope domain.Scope,
	prep *Preview,
	mapping domain.ColumnMapping,
	format *DateFormat,
) {
	defer s.removeCancel(jobID)

	var (
		processed int
		succeeded int
		failed    int
		logs      []string
	)
	appendLog := func(f string, args ...interface{}) {
		logs = append(logs, fmt.Sprintf(f, args...))
	}
	tail := func() []string {
		if len(logs) > s.cfg.LogTail {
			return logs[len(logs)-s.cfg.LogTail:]
		}
		return logs
	}
	cancelled := func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
	finish := func(status domain.ImportStatus) {
		// Terminal writes use a fresh context: a cancelled job must still
		// reach a terminal, inspectable state.
		fctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.jobs.Finish(fctx, jobID, status, processed, succeeded, failed, tail()); err != nil {
			logger.Error("finalizing import job failed", "job_id", jobID, "error", err)
		}
		s.setProgress(fctx, jobID, status, prep.TotalRows, processed, succeeded, failed, tail())
	}

	defer func() {
		if r := recover(); r != nil {
			appendLog("Import failed: internal error")
			logger.Error("import job panicked", "job_id", jobID, "panic", fmt.Sprintf("%v", r))
			finish(domain.ImportFailed)
		}
	}()

	if err := s.jobs.MarkProcessing(ctx, jobID, prep.TotalRows); err != nil {
		appendLog("Import failed: could not start processing")
		logger.Error("marking import processing failed", "job_id", jobID, "error", err)
		finish(domain.ImportFailed)
		return
	}

	plans, err := s.plans.ByScope(ctx, scope)
	if err != nil {
		// Plans only drive plan-name resolution; import proceeds without them.
		appendLog("Plan list unavailable, plan columns will be skipped")
		logger.Warn("loading plans for import failed", "job_id", jobID, "error", err)
	}

	finishCancelled := func() {
		appendLog("Import cancelled after %d of %d rows", processed, prep.TotalRows)
		finish(domain.ImportFailed)
	}

	for start := 0; start < len(prep.Rows); start += s.cfg.BatchSize {
		if start > 0 {
			select {
			case <-done:
				finishCancelled()
				return
			case <-time.After(s.cfg.BatchDelay()):
			}
		}

		end := start + s.cfg.BatchSize
		if end > len(prep.Rows) {
			end = len(prep.Rows)
		}

		for i := start; i < end; i++ {
			rowNum := i + 1
			if err := s.processRow(ctx, scope, prep.Rows[i], rowNum, mapping, format, plans, appendLog); err != nil {
				failed++
				appendLog("Row %d: %v", rowNum, err)
			} else {
				succeeded++
				appendLog("Row %d: imported", rowNum)
			}
			processed++
		}

		if err := s.jobs.UpdateProgress(ctx, jobID, processed, succeeded, failed, tail()); err != nil {
			logger.Warn("persisting import progress failed", "job_id", jobID, "error", err)
		}
		s.setProgress(ctx, jobID, domain.ImportProcessing, prep.TotalRows, processed, succeeded, failed, tail())

		// A cancel that landed mid-batch takes effect here, after the batch
		// finished. Without this check a cancel during the final batch would
		// fall through and report the job completed.
		if cancelled() {
			finishCancelled()
			return
		}
	}

	appendLog("Import completed: %d imported, %d failed", succeeded, failed)
	finish(domain.ImportCompleted)
	logger.Info("import job completed",
		"job_id", jobID, "total", prep.TotalRows, "imported", succeeded, "failed", failed)
}

// processRow transforms and inserts one row. A panic inside the transform is
// converted into a row error so one malformed row never takes the job down.
func (s *Service) processRow(
	ctx context.Context,
	scope domain.Scope,
	row []string,
	rowNum int,
	mapping domain.ColumnMapping,
	format *DateFormat,
	plans []domain.MembershipPlan,
	logf rowLogger,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error: %v", r)
		}
	}()

	member, err := buildMember(scope, row, rowNum, mapping, format, plans, logf)
	if err != nil {
		return err
	}
	if err := s.members.Insert(ctx, member); err != nil {
		return fmt.Errorf("insert failed: %v", err)
	}
	return nil
}

// Job returns the persisted job snapshot, scope-checked.
func (s *Service) Job(ctx context.Context, scope domain.Scope, id string) (*domain.ImportJob, error) {
	return s.jobs.Get(ctx, scope, id)
}

// Jobs lists recent import jobs inside the scope.
func (s *Service) Jobs(ctx context.Context, scope domain.Scope, limit int) ([]domain.ImportJob, error) {
	return s.jobs.ListRecent(ctx, scope, limit)
}

// PollUntilTerminal re-reads the job on the given interval until it reaches
// completed or failed, returning the final snapshot. The ticker is released
// on return; ctx cancellation stops the loop.
func (s *Service) PollUntilTerminal(ctx context.Context, scope domain.Scope, id string, interval time.Duration) (*domain.ImportJob, error) {
	if interval <= 0 {
		interval = s.cfg.PollInterval()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := s.jobs.Get(ctx, scope, id)
		if err != nil {
			return nil, err
		}
		if job.IsTerminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) progressKey(jobID string) string {
	return "import:progress:" + jobID
}

func (s *Service) setProgress(ctx context.Context, jobID string, status domain.ImportStatus, total, processed, succeeded, failed int, logTail []string) {
	if s.redis == nil {
		return
	}
	snap := Progress{
		JobID:     jobID,
		Status:    status,
		TotalRows: total,
		Processed: processed,
		Succeeded: succeeded,
		Failed:    failed,
		Logs:      logTail,
		UpdatedAt: time.Now().UTC(),
	}
	data, _ := json.Marshal(snap)
	if err := s.redis.Set(ctx, s.progressKey(jobID), data, progressTTL).Err(); err != nil {
		logger.Debug("writing progress snapshot failed", "job_id", jobID, "error", err)
	}
}

// LiveProgress reads the Redis progress snapshot. It returns nil when no
// snapshot exists (job never started, or snapshot expired); callers fall
// back to the job record.
func (s *Service) LiveProgress(ctx context.Context, jobID string) (*Progress, error) {
	if s.redis == nil {
		return nil, nil
	}
	data, err := s.redis.Get(ctx, s.progressKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
