package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
)

// headerAliases maps each target field to its recognized header substrings,
// in priority order. Matching is case-insensitive substring; the first field
// whose alias matches wins for a given header.
var headerAliases = []struct {
	field   string
	aliases []string
}{
	{domain.FieldName, []string{"name", "full name"}},
	{domain.FieldEmail, []string{"email"}},
	{domain.FieldPhone, []string{"phone", "mobile"}},
	{domain.FieldGender, []string{"gender", "sex"}},
	{domain.FieldDOB, []string{"birth", "dob"}},
	{domain.FieldJoinDate, []string{"join", "start", "registration"}},
	{domain.FieldIsActive, []string{"active", "status"}},
	{domain.FieldActivePlan, []string{"plan", "membership", "package"}},
	{domain.FieldLastPayment, []string{"last payment"}},
	{domain.FieldNextPayment, []string{"next payment", "due date"}},
}

// Preview is the decoded form of an uploaded file: headers, the full data
// row set retained for processing, a truncated sample for display, and the
// suggested automatic column mapping.
type Preview struct {
	FileName  string               `json:"file_name"`
	Headers   []string             `json:"headers"`
	Rows      [][]string           `json:"-"`
	Sample    [][]string           `json:"sample_rows"`
	TotalRows int                  `json:"total_rows"`
	Suggested domain.ColumnMapping `json:"suggested_mapping"`
}

// ParseUpload validates and decodes a delimited upload. It rejects files
// before any row work: wrong extension, oversized, or fewer than two lines.
// Quoted fields containing the delimiter are handled by the CSV reader.
func ParseUpload(fileName string, data []byte, maxSize int64, previewRows int) (*Preview, error) {
	if ext := strings.ToLower(filepath.Ext(fileName)); ext != ".csv" {
		return nil, ErrUnsupportedType
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, ErrFileTooLarge
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // allow ragged rows; transform guards indexes
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decoding csv: %w", err)
	}
	if len(records) < 2 {
		return nil, ErrTooFewRows
	}

	headers := records[0]
	rows := records[1:]

	if previewRows <= 0 {
		previewRows = 10
	}
	sample := rows
	if len(sample) > previewRows {
		sample = sample[:previewRows]
	}

	return &Preview{
		FileName:  fileName,
		Headers:   headers,
		Rows:      rows,
		Sample:    sample,
		TotalRows: len(rows),
		Suggested: AutoMap(headers),
	}, nil
}

// AutoMap suggests a column mapping by substring-matching each lower-cased
// header against the alias table. Unmatched headers are left out of the
// mapping; the caller must map or skip them explicitly.
func AutoMap(headers []string) domain.ColumnMapping {
	mapping := domain.ColumnMapping{}
	for idx, header := range headers {
		normalized := strings.ToLower(strings.TrimSpace(header))
		if normalized == "" {
			continue
		}
		for _, entry := range headerAliases {
			matched := false
			for _, alias := range entry.aliases {
				if strings.Contains(normalized, alias) {
					mapping[idx] = entry.field
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
	}
	return mapping
}

// ValidateMapping checks that every required target field is mapped at least
// once. Only name is required.
func ValidateMapping(mapping domain.ColumnMapping) error {
	if !mapping.HasField(domain.FieldName) {
		return ErrNameColumnRequired
	}
	return nil
}

// DateSamples pulls sample values for every mapped date column from the
// first data row, to help the caller pick the right date format.
func DateSamples(prep *Preview, mapping domain.ColumnMapping) map[string]string {
	samples := make(map[string]string)
	if len(prep.Rows) == 0 {
		return samples
	}
	first := prep.Rows[0]
	for col, field := range mapping {
		if !domain.IsDateField(field) {
			continue
		}
		if col >= 0 && col < len(first) {
			samples[field] = strings.TrimSpace(first[col])
		}
	}
	return samples
}
