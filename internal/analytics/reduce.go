package analytics

import "time"

// monthKey renders the fixed month-bucket label, e.g. "Jan 2024".
func monthKey(t time.Time) string { return t.Format("Jan 2006") }

// amountRecord is the shape both payments and expenses reduce through.
type amountRecord struct {
	amount    float64
	date      time.Time
	group     string // plan name for payments, category for expenses
	franchise string
}

// amountSummary holds the reduction shared by payments and expenses.
type amountSummary struct {
	total       float64
	count       int
	average     float64
	byMonth     map[string]float64
	byGroup     map[string]float64
	byFranchise map[string]float64
}

// reduceAmounts sums one pass over the records. Missing grouping attributes
// land in the fallback bucket so the partition invariant holds: every
// grouped map sums back to the total.
func reduceAmounts(records []amountRecord, groupFallback string) amountSummary {
	s := amountSummary{
		byMonth:     make(map[string]float64),
		byGroup:     make(map[string]float64),
		byFranchise: make(map[string]float64),
	}

	for _, r := range records {
		s.total += r.amount
		s.count++
		s.byMonth[monthKey(r.date)] += r.amount

		group := r.group
		if group == "" {
			group = groupFallback
		}
		s.byGroup[group] += r.amount

		franchise := r.franchise
		if franchise == "" {
			franchise = "Unknown"
		}
		s.byFranchise[franchise] += r.amount
	}

	if s.count > 0 {
		s.average = s.total / float64(s.count)
	}
	return s
}

// ratio returns a*100/b, or 0 when b is 0. Grouped KPI math must never
// produce NaN or Inf.
func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b * 100
}

// safeDiv returns a/b, or 0 when b is 0.
func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
