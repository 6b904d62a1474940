package importer

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
)

var testScope = domain.Scope{AccountID: "acc-1", FranchiseIDs: []string{"fr-1"}}

func collectLogs() (rowLogger, *[]string) {
	var logs []string
	return func(format string, args ...interface{}) {
		logs = append(logs, fmt.Sprintf(format, args...))
	}, &logs
}

func TestBuildMember_FullRow(t *testing.T) {
	mapping := domain.ColumnMapping{
		0: domain.FieldName,
		1: domain.FieldEmail,
		2: domain.FieldPhone,
		3: domain.FieldGender,
		4: domain.FieldDOB,
		5: domain.FieldJoinDate,
		6: domain.FieldIsActive,
		7: domain.FieldActivePlan,
	}
	format, _ := LookupDateFormat("dd/mm/yyyy")
	plans := []domain.MembershipPlan{{ID: "plan-1", Name: "Gold Annual"}}
	logf, logs := collectLogs()

	row := []string{"John Doe", "john@example.com", "555-0101", "male", "15/03/1990", "01/02/2024", "yes", "Gold"}
	m, err := buildMember(testScope, row, 1, mapping, format, plans, logf)
	if err != nil {
		t.Fatalf("buildMember() error: %v", err)
	}

	if m.AccountID != "acc-1" || m.FranchiseID != "fr-1" {
		t.Errorf("scope ids = %s/%s, want acc-1/fr-1", m.AccountID, m.FranchiseID)
	}
	if m.Name != "John Doe" || m.Email != "john@example.com" || m.Phone != "555-0101" {
		t.Errorf("identity fields = %q/%q/%q", m.Name, m.Email, m.Phone)
	}
	if m.DOB == nil || !m.DOB.Equal(date(1990, 3, 15)) {
		t.Errorf("DOB = %v, want 1990-03-15", m.DOB)
	}
	if !m.JoinDate.Equal(date(2024, 2, 1)) {
		t.Errorf("JoinDate = %v, want 2024-02-01", m.JoinDate)
	}
	if !m.IsActive {
		t.Error("IsActive = false, want true")
	}
	if m.PlanID == nil || *m.PlanID != "plan-1" {
		t.Errorf("PlanID = %v, want plan-1", m.PlanID)
	}
	if len(*logs) != 0 {
		t.Errorf("logs = %v, want none", *logs)
	}
}

func TestBuildMember_NameRequired(t *testing.T) {
	mapping := domain.ColumnMapping{0: domain.FieldName, 1: domain.FieldEmail}
	logf, _ := collectLogs()

	for _, row := range [][]string{
		{"", "no-name@example.com"},
		{"   ", "ws-name@example.com"},
		{}, // name column out of range
	} {
		_, err := buildMember(testScope, row, 2, mapping, nil, nil, logf)
		if !errors.Is(err, errNameRequired) {
			t.Errorf("buildMember(%v) err = %v, want errNameRequired", row, err)
		}
	}

	if errNameRequired.Error() != "Name is required" {
		t.Errorf("error text = %q, want %q", errNameRequired.Error(), "Name is required")
	}
}

func TestBuildMember_Defaults(t *testing.T) {
	mapping := domain.ColumnMapping{0: domain.FieldName}
	logf, _ := collectLogs()

	m, err := buildMember(testScope, []string{"Jane"}, 1, mapping, nil, nil, logf)
	if err != nil {
		t.Fatalf("buildMember() error: %v", err)
	}

	if !m.IsActive {
		t.Error("unmapped is_active should default to true")
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if !m.JoinDate.Equal(today) {
		t.Errorf("JoinDate = %v, want today %v", m.JoinDate, today)
	}
	if m.DOB != nil || m.LastPayment != nil || m.NextPayment != nil || m.PlanID != nil {
		t.Error("unmapped optional fields should stay nil")
	}
}

func TestBuildMember_SkipAndOutOfRangeColumns(t *testing.T) {
	mapping := domain.ColumnMapping{
		0: domain.FieldName,
		1: domain.FieldSkip,
		9: domain.FieldEmail, // beyond the row
	}
	logf, _ := collectLogs()

	m, err := buildMember(testScope, []string{"Jane", "ignored"}, 1, mapping, nil, nil, logf)
	if err != nil {
		t.Fatalf("buildMember() error: %v", err)
	}
	if m.Email != "" {
		t.Errorf("Email = %q, want empty", m.Email)
	}
}

func TestBuildMember_BadDateLoggedAndDropped(t *testing.T) {
	mapping := domain.ColumnMapping{0: domain.FieldName, 1: domain.FieldDOB}
	format, _ := LookupDateFormat("dd/mm/yyyy")
	logf, logs := collectLogs()

	m, err := buildMember(testScope, []string{"Jane", "30/02/2024"}, 3, mapping, format, nil, logf)
	if err != nil {
		t.Fatalf("buildMember() error: %v", err)
	}
	if m.DOB != nil {
		t.Errorf("DOB = %v, want nil for impossible date", m.DOB)
	}
	if len(*logs) != 1 || !strings.HasPrefix((*logs)[0], "Row 3:") {
		t.Errorf("logs = %v, want one entry prefixed Row 3:", *logs)
	}
}

func TestBuildMember_UnresolvedPlanLogged(t *testing.T) {
	mapping := domain.ColumnMapping{0: domain.FieldName, 1: domain.FieldActivePlan}
	plans := []domain.MembershipPlan{{ID: "plan-1", Name: "Gold Annual"}}
	logf, logs := collectLogs()

	m, err := buildMember(testScope, []string{"Jane", "Platinum"}, 4, mapping, nil, plans, logf)
	if err != nil {
		t.Fatalf("buildMember() error: %v", err)
	}
	if m.PlanID != nil {
		t.Errorf("PlanID = %v, want nil", m.PlanID)
	}
	if len(*logs) != 1 || !strings.Contains((*logs)[0], "Platinum") {
		t.Errorf("logs = %v, want unresolved plan entry", *logs)
	}
}

func TestParseTruthy(t *testing.T) {
	truthyCells := []string{"true", "TRUE", "1", "yes", "Yes", "active", " Active "}
	for _, cell := range truthyCells {
		if !parseTruthy(cell) {
			t.Errorf("parseTruthy(%q) = false, want true", cell)
		}
	}

	falsyCells := []string{"false", "0", "no", "inactive", "", "y", "on"}
	for _, cell := range falsyCells {
		if parseTruthy(cell) {
			t.Errorf("parseTruthy(%q) = true, want false", cell)
		}
	}
}

func TestResolvePlan(t *testing.T) {
	plans := []domain.MembershipPlan{
		{ID: "p1", Name: "Gold Annual"},
		{ID: "p2", Name: "Silver"},
		{ID: "p3", Name: "Student Basic"},
	}

	tests := []struct {
		text string
		want string // plan id, "" for no match
	}{
		{"Gold", "p1"},             // cell is substring of plan name
		{"gold annual plus", "p1"}, // plan name is substring of cell
		{"SILVER", "p2"},
		{"  silver  ", "p2"},
		{"Student", "p3"},
		{"Platinum", ""},
		{"", ""},
		{"   ", ""},
	}

	for _, tc := range tests {
		got := resolvePlan(tc.text, plans)
		switch {
		case tc.want == "" && got != nil:
			t.Errorf("resolvePlan(%q) = %s, want no match", tc.text, got.ID)
		case tc.want != "" && (got == nil || got.ID != tc.want):
			t.Errorf("resolvePlan(%q) = %v, want %s", tc.text, got, tc.want)
		}
	}
}

func TestResolvePlan_FirstMatchWins(t *testing.T) {
	plans := []domain.MembershipPlan{
		{ID: "p1", Name: "Gold"},
		{ID: "p2", Name: "Gold Annual"},
	}
	// "Gold Annual" contains "Gold", so the earlier plan wins even though the
	// later one matches exactly.
	if got := resolvePlan("Gold Annual", plans); got == nil || got.ID != "p1" {
		t.Errorf("resolvePlan(Gold Annual) = %v, want p1", got)
	}
}
