package importer

import "errors"

// Validation errors surface synchronously and block a job from starting.
// Row-level problems never appear here; they are recorded on the job's log
// and counters instead.
var (
	ErrUnsupportedType    = errors.New("only .csv files are supported")
	ErrFileTooLarge       = errors.New("file exceeds the maximum allowed size")
	ErrTooFewRows         = errors.New("file must contain a header row and at least one data row")
	ErrNameColumnRequired = errors.New("mapping is missing the required field: name")
	ErrDateFormatRequired = errors.New("a date format must be selected when date fields are mapped")
	ErrUnknownDateFormat  = errors.New("unknown date format")
	ErrFranchiseRequired  = errors.New("import requires a single target franchise")
)
