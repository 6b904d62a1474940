package importer

import (
	"errors"
	"strings"
	"time"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
)

// errNameRequired is the row-level failure for a row whose mapped name cell
// ends up empty. It is counted and logged, never escalated.
var errNameRequired = errors.New("Name is required")

// truthy is the tolerant boolean vocabulary accepted in is_active cells.
var truthy = map[string]bool{"true": true, "1": true, "yes": true, "active": true}

func parseTruthy(cell string) bool {
	return truthy[strings.ToLower(strings.TrimSpace(cell))]
}

// rowLogger collects diagnostics emitted while transforming a single row.
type rowLogger func(format string, args ...interface{})

// buildMember applies the column mapping and date format to one source row
// and produces the member to insert. Unparseable dates and unresolved plan
// names are logged and dropped from the record; only a missing name fails
// the row.
func buildMember(
	scope domain.Scope,
	row []string,
	rowNum int,
	mapping domain.ColumnMapping,
	format *DateFormat,
	plans []domain.MembershipPlan,
	logf rowLogger,
) (*domain.Member, error) {
	cells := make(map[string]string)
	for col, field := range mapping {
		if field == domain.FieldSkip {
			continue
		}
		if col < 0 || col >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[col]); v != "" {
			cells[field] = v
		}
	}

	name := cells[domain.FieldName]
	if name == "" {
		return nil, errNameRequired
	}

	m := &domain.Member{
		AccountID:   scope.AccountID,
		FranchiseID: scope.FranchiseIDs[0],
		Name:        name,
		Email:       cells[domain.FieldEmail],
		Phone:       cells[domain.FieldPhone],
		Gender:      cells[domain.FieldGender],
		IsActive:    true,
		JoinDate:    time.Now().UTC().Truncate(24 * time.Hour),
	}

	if v, ok := cells[domain.FieldIsActive]; ok {
		m.IsActive = parseTruthy(v)
	}

	parseDate := func(field string) *time.Time {
		v, ok := cells[field]
		if !ok {
			return nil
		}
		if format == nil {
			logf("Row %d: no date format selected, dropped %s value %q", rowNum, field, v)
			return nil
		}
		t, ok := format.Parse(v)
		if !ok {
			logf("Row %d: invalid %s date %q for format %s, field skipped", rowNum, field, v, format.Name)
			return nil
		}
		return &t
	}

	m.DOB = parseDate(domain.FieldDOB)
	if t := parseDate(domain.FieldJoinDate); t != nil {
		m.JoinDate = *t
	}
	m.LastPayment = parseDate(domain.FieldLastPayment)
	m.NextPayment = parseDate(domain.FieldNextPayment)

	if v, ok := cells[domain.FieldActivePlan]; ok {
		if plan := resolvePlan(v, plans); plan != nil {
			m.PlanID = &plan.ID
		} else {
			logf("Row %d: no plan matches %q, field skipped", rowNum, v)
		}
	}

	return m, nil
}

// resolvePlan matches free-text plan names against the tenant's plan list
// using a case-insensitive substring match in both directions, mirroring how
// operators actually type plan names ("Gold" for "Gold Annual"). First match
// wins; short plan names can therefore over-match — accepted behavior.
func resolvePlan(text string, plans []domain.MembershipPlan) *domain.MembershipPlan {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return nil
	}
	for i := range plans {
		name := strings.ToLower(plans[i].Name)
		if strings.Contains(name, needle) || strings.Contains(needle, name) {
			return &plans[i]
		}
	}
	return nil
}
