package domain

import "time"

// ImportStatus enumerates the lifecycle states of a bulk member import.
// Transitions only move forward: pending -> processing -> completed|failed.
type ImportStatus string

const (
	ImportPending    ImportStatus = "pending"
	ImportProcessing ImportStatus = "processing"
	ImportCompleted  ImportStatus = "completed"
	ImportFailed     ImportStatus = "failed"
)

// Target fields a CSV column can be mapped to. FieldSkip marks a column the
// caller chose to ignore.
const (
	FieldName        = "name"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldGender      = "gender"
	FieldDOB         = "dob"
	FieldJoinDate    = "join_date"
	FieldIsActive    = "is_active"
	FieldActivePlan  = "active_plan"
	FieldLastPayment = "last_payment"
	FieldNextPayment = "next_payment"
	FieldSkip        = "skip"
)

// TargetFields lists every mappable field in display order.
var TargetFields = []string{
	FieldName, FieldEmail, FieldPhone, FieldGender, FieldDOB,
	FieldJoinDate, FieldIsActive, FieldActivePlan, FieldLastPayment, FieldNextPayment,
}

// DateFields are the target fields that carry a date value. Mapping any of
// them requires the caller to pick a date format before the import starts.
var DateFields = []string{FieldDOB, FieldJoinDate, FieldLastPayment, FieldNextPayment}

// IsDateField reports whether the target field holds a date.
func IsDateField(field string) bool {
	for _, f := range DateFields {
		if f == field {
			return true
		}
	}
	return false
}

// ColumnMapping maps a zero-based source column index to a target field name
// (or FieldSkip). It is immutable once the owning job starts processing and
// is persisted as a JSON object keyed by the string column index.
type ColumnMapping map[int]string

// HasField reports whether any column maps to the given target field.
func (m ColumnMapping) HasField(field string) bool {
	for _, f := range m {
		if f == field {
			return true
		}
	}
	return false
}

// DateFieldsMapped reports whether any mapped target field is date-typed.
func (m ColumnMapping) DateFieldsMapped() bool {
	for _, f := range m {
		if IsDateField(f) {
			return true
		}
	}
	return false
}

// ImportJob is the persisted state record tracking one bulk CSV-to-member
// import's progress and outcome. It is mutated incrementally by the batch
// processor and becomes immutable once terminal.
type ImportJob struct {
	ID          string        `json:"id" db:"id"`
	AccountID   string        `json:"account_id" db:"account_id"`
	FranchiseID string        `json:"franchise_id" db:"franchise_id"`
	UploadedBy  string        `json:"uploaded_by" db:"uploaded_by"`
	FileName    string        `json:"file_name" db:"file_name"`
	FileURL     string        `json:"file_url" db:"file_url"`
	Status      ImportStatus  `json:"status" db:"status"`
	TotalRows   int           `json:"total_rows" db:"total_rows"`
	Processed   int           `json:"processed_rows" db:"processed_rows"`
	Succeeded   int           `json:"success_count" db:"success_count"`
	Failed      int           `json:"error_count" db:"error_count"`
	Logs        []string      `json:"logs" db:"logs"`
	Mapping     ColumnMapping `json:"column_mapping" db:"column_mapping"`
	DateFormat  string        `json:"date_format" db:"date_format"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	CompletedAt *time.Time    `json:"completed_at" db:"completed_at"`
}

// IsTerminal returns true once the job has finished, successfully or not.
func (j *ImportJob) IsTerminal() bool {
	return j.Status == ImportCompleted || j.Status == ImportFailed
}
