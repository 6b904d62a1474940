package importer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
)

func TestParseUpload_RejectsNonCSV(t *testing.T) {
	for _, name := range []string{"members.xlsx", "members.txt", "members", "members.CSV.pdf"} {
		if _, err := ParseUpload(name, []byte("a,b\n1,2\n"), 0, 10); !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("ParseUpload(%q) err = %v, want ErrUnsupportedType", name, err)
		}
	}

	// Extension check is case-insensitive.
	if _, err := ParseUpload("members.CSV", []byte("a,b\n1,2\n"), 0, 10); err != nil {
		t.Errorf("ParseUpload(members.CSV) err = %v, want nil", err)
	}
}

func TestParseUpload_RejectsOversized(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 101)
	if _, err := ParseUpload("big.csv", data, 100, 10); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("err = %v, want ErrFileTooLarge", err)
	}
	// At exactly the limit it passes the size gate.
	if _, err := ParseUpload("ok.csv", []byte("a,b\n1,2\n"), 8, 10); errors.Is(err, ErrFileTooLarge) {
		t.Error("file at the size limit was rejected")
	}
}

func TestParseUpload_RejectsHeaderOnly(t *testing.T) {
	for _, body := range []string{"", "name,email\n"} {
		if _, err := ParseUpload("m.csv", []byte(body), 0, 10); !errors.Is(err, ErrTooFewRows) {
			t.Errorf("ParseUpload(%q) err = %v, want ErrTooFewRows", body, err)
		}
	}
}

func TestParseUpload_DecodesQuotedAndRaggedRows(t *testing.T) {
	body := `Name,Email,Plan
"Doe, John",john@example.com,"Gold ""Annual"""
Jane,jane@example.com
`
	prep, err := ParseUpload("m.csv", []byte(body), 0, 10)
	if err != nil {
		t.Fatalf("ParseUpload() error: %v", err)
	}

	if prep.TotalRows != 2 {
		t.Fatalf("TotalRows = %d, want 2", prep.TotalRows)
	}
	if got := prep.Rows[0][0]; got != "Doe, John" {
		t.Errorf("quoted cell = %q, want %q", got, "Doe, John")
	}
	if got := prep.Rows[0][2]; got != `Gold "Annual"` {
		t.Errorf("escaped-quote cell = %q, want %q", got, `Gold "Annual"`)
	}
	if len(prep.Rows[1]) != 2 {
		t.Errorf("ragged row length = %d, want 2", len(prep.Rows[1]))
	}
}

func TestParseUpload_SampleTruncation(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("name\n")
	for i := 0; i < 25; i++ {
		sb.WriteString("Member\n")
	}

	prep, err := ParseUpload("m.csv", []byte(sb.String()), 0, 10)
	if err != nil {
		t.Fatalf("ParseUpload() error: %v", err)
	}
	if prep.TotalRows != 25 {
		t.Errorf("TotalRows = %d, want 25", prep.TotalRows)
	}
	if len(prep.Sample) != 10 {
		t.Errorf("Sample length = %d, want 10", len(prep.Sample))
	}
	if len(prep.Rows) != 25 {
		t.Errorf("Rows length = %d, want 25", len(prep.Rows))
	}
}

func TestAutoMap(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    domain.ColumnMapping
	}{
		{
			name:    "exact headers",
			headers: []string{"Name", "Email", "Phone"},
			want:    domain.ColumnMapping{0: domain.FieldName, 1: domain.FieldEmail, 2: domain.FieldPhone},
		},
		{
			name:    "alias variants",
			headers: []string{"Full Name", "Email Address", "Mobile Number", "Date of Birth", "Membership Package"},
			want: domain.ColumnMapping{
				0: domain.FieldName,
				1: domain.FieldEmail,
				2: domain.FieldPhone,
				3: domain.FieldDOB,
				4: domain.FieldActivePlan,
			},
		},
		{
			name:    "join and payment dates",
			headers: []string{"Joining Date", "Last Payment", "Next Payment Due"},
			want: domain.ColumnMapping{
				0: domain.FieldJoinDate,
				1: domain.FieldLastPayment,
				2: domain.FieldNextPayment,
			},
		},
		{
			name:    "status and gender",
			headers: []string{"Status", "Sex"},
			want:    domain.ColumnMapping{0: domain.FieldIsActive, 1: domain.FieldGender},
		},
		{
			name:    "unknown headers stay unmapped",
			headers: []string{"Locker Number", "Notes", ""},
			want:    domain.ColumnMapping{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := AutoMap(tc.headers)
			if len(got) != len(tc.want) {
				t.Fatalf("mapping = %v, want %v", got, tc.want)
			}
			for col, field := range tc.want {
				if got[col] != field {
					t.Errorf("column %d = %q, want %q", col, got[col], field)
				}
			}
		})
	}
}

func TestAutoMap_FirstFieldWins(t *testing.T) {
	// "name" appears earlier in the alias table than the payment fields, so a
	// header matching several fields resolves to the earliest entry.
	got := AutoMap([]string{"Plan Name"})
	if got[0] != domain.FieldName {
		t.Errorf("column 0 = %q, want %q", got[0], domain.FieldName)
	}
}

func TestValidateMapping(t *testing.T) {
	if err := ValidateMapping(domain.ColumnMapping{0: domain.FieldEmail}); !errors.Is(err, ErrNameColumnRequired) {
		t.Errorf("err = %v, want ErrNameColumnRequired", err)
	}
	if err := ValidateMapping(domain.ColumnMapping{0: domain.FieldName}); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

func TestDateSamples(t *testing.T) {
	body := "Name,DOB,Join Date\nJohn,15/03/1990,01/01/2024\n"
	prep, err := ParseUpload("m.csv", []byte(body), 0, 10)
	if err != nil {
		t.Fatalf("ParseUpload() error: %v", err)
	}

	mapping := domain.ColumnMapping{0: domain.FieldName, 1: domain.FieldDOB, 2: domain.FieldJoinDate}
	samples := DateSamples(prep, mapping)

	if samples[domain.FieldDOB] != "15/03/1990" {
		t.Errorf("dob sample = %q, want 15/03/1990", samples[domain.FieldDOB])
	}
	if samples[domain.FieldJoinDate] != "01/01/2024" {
		t.Errorf("join sample = %q, want 01/01/2024", samples[domain.FieldJoinDate])
	}
	if _, ok := samples[domain.FieldName]; ok {
		t.Error("non-date field should not appear in samples")
	}
}
