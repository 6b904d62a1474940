// Package analytics reduces raw payment, expense, and member records into
// per-request summary buckets and derived KPIs.
//
// The aggregator is a pure function of (scope, window, fetched data): it
// holds no state between calls and re-fetches everything on every request.
// A failed fetch degrades its bucket to the zeroed shape instead of failing
// the whole report.
package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
	"github.com/fitgrid/franchise-dashboard/internal/pkg/logger"
)

// DataSource supplies the raw records. Every call is scoped; members are
// deliberately fetched without a date filter (new-member counts derive from
// join_date afterwards).
type DataSource interface {
	PaymentsInWindow(ctx context.Context, scope domain.Scope, from, toExclusive time.Time) ([]domain.Payment, error)
	ExpensesInWindow(ctx context.Context, scope domain.Scope, from, toExclusive time.Time) ([]domain.Expense, error)
	MembersInScope(ctx context.Context, scope domain.Scope) ([]domain.Member, error)
}

// PaymentSummary aggregates payments over the window.
type PaymentSummary struct {
	TotalAmount   float64            `json:"total_amount"`
	TotalCount    int                `json:"total_count"`
	AverageAmount float64            `json:"average_amount"`
	ByMonth       map[string]float64 `json:"by_month"`
	ByPlan        map[string]float64 `json:"by_plan"`
	ByFranchise   map[string]float64 `json:"by_franchise"`
}

// ExpenseSummary aggregates expenses over the window.
type ExpenseSummary struct {
	TotalAmount   float64            `json:"total_amount"`
	TotalCount    int                `json:"total_count"`
	AverageAmount float64            `json:"average_amount"`
	ByMonth       map[string]float64 `json:"by_month"`
	ByCategory    map[string]float64 `json:"by_category"`
	ByFranchise   map[string]float64 `json:"by_franchise"`
}

// MemberSummary aggregates the member base. Counts cover all members in
// scope; only NewMembers is window-dependent.
type MemberSummary struct {
	TotalMembers    int            `json:"total_members"`
	ActiveMembers   int            `json:"active_members"`
	InactiveMembers int            `json:"inactive_members"`
	NewMembers      int            `json:"new_members"`
	ChurnRate       float64        `json:"churn_rate"`
	ByPlan          map[string]int `json:"by_plan"`
	ByMonth         map[string]int `json:"by_month"`
	ByFranchise     map[string]int `json:"by_franchise"`
}

// Overview composes the three buckets into the headline KPIs.
type Overview struct {
	TotalRevenue     float64 `json:"total_revenue"`
	TotalExpenses    float64 `json:"total_expenses"`
	NetProfit        float64 `json:"net_profit"`
	ProfitMargin     float64 `json:"profit_margin"`
	RevenuePerMember float64 `json:"revenue_per_member"`

	TotalMembers    int     `json:"total_members"`
	ActiveMembers   int     `json:"active_members"`
	InactiveMembers int     `json:"inactive_members"`
	NewMembers      int     `json:"new_members"`
	ChurnRate       float64 `json:"churn_rate"`

	FranchiseProfit     map[string]float64 `json:"franchise_profit"`
	FranchiseMargins    map[string]float64 `json:"franchise_margins"`
	TopFranchise        string             `json:"top_franchise"`
	MostProfitableMonth string             `json:"most_profitable_month"`
	HighestExpenseMonth string             `json:"highest_expense_month"`
}

// Report is the full analytics response for one (scope, window) request.
type Report struct {
	From        time.Time      `json:"from"`
	To          time.Time      `json:"to"`
	Payments    PaymentSummary `json:"payments"`
	Expenses    ExpenseSummary `json:"expenses"`
	Members     MemberSummary  `json:"members"`
	Overview    Overview       `json:"overview"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Aggregator computes analytics reports.
type Aggregator struct {
	src DataSource
}

// New creates an aggregator over a data source.
func New(src DataSource) *Aggregator { return &Aggregator{src: src} }

// Compute fetches and reduces everything for the scope and inclusive date
// window [from, to]. The three fetches run concurrently; a failure in one
// degrades that bucket to its zeroed shape and the report is still returned.
// Compute never returns an error.
func (a *Aggregator) Compute(ctx context.Context, scope domain.Scope, from, to time.Time) *Report {
	// The window end is inclusive at day granularity.
	toExclusive := to.AddDate(0, 0, 1)

	var (
		wg       sync.WaitGroup
		payments []domain.Payment
		expenses []domain.Expense
		members  []domain.Member
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		var err error
		if payments, err = a.src.PaymentsInWindow(ctx, scope, from, toExclusive); err != nil {
			payments = nil
			logger.Warn("analytics payments fetch failed", "account_id", scope.AccountID, "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if expenses, err = a.src.ExpensesInWindow(ctx, scope, from, toExclusive); err != nil {
			expenses = nil
			logger.Warn("analytics expenses fetch failed", "account_id", scope.AccountID, "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if members, err = a.src.MembersInScope(ctx, scope); err != nil {
			members = nil
			logger.Warn("analytics members fetch failed", "account_id", scope.AccountID, "error", err)
		}
	}()
	wg.Wait()

	report := &Report{
		From:        from,
		To:          to,
		Payments:    reducePayments(payments),
		Expenses:    reduceExpenses(expenses),
		Members:     reduceMembers(members, from, toExclusive),
		GeneratedAt: time.Now().UTC(),
	}
	report.Overview = composeOverview(report.Payments, report.Expenses, report.Members)
	return report
}

func reducePayments(payments []domain.Payment) PaymentSummary {
	records := make([]amountRecord, 0, len(payments))
	for _, p := range payments {
		records = append(records, amountRecord{
			amount:    p.EffectiveAmount(),
			date:      p.PaidAt,
			group:     p.PlanName,
			franchise: p.FranchiseName,
		})
	}
	s := reduceAmounts(records, "Unknown")
	return PaymentSummary{
		TotalAmount:   s.total,
		TotalCount:    s.count,
		AverageAmount: s.average,
		ByMonth:       s.byMonth,
		ByPlan:        s.byGroup,
		ByFranchise:   s.byFranchise,
	}
}

func reduceExpenses(expenses []domain.Expense) ExpenseSummary {
	records := make([]amountRecord, 0, len(expenses))
	for _, e := range expenses {
		records = append(records, amountRecord{
			amount:    e.Amount,
			date:      e.ExpenseDate,
			group:     e.Category,
			franchise: e.FranchiseName,
		})
	}
	s := reduceAmounts(records, "Uncategorized")
	return ExpenseSummary{
		TotalAmount:   s.total,
		TotalCount:    s.count,
		AverageAmount: s.average,
		ByMonth:       s.byMonth,
		ByCategory:    s.byGroup,
		ByFranchise:   s.byFranchise,
	}
}

func reduceMembers(members []domain.Member, from, toExclusive time.Time) MemberSummary {
	s := MemberSummary{
		ByPlan:      make(map[string]int),
		ByMonth:     make(map[string]int),
		ByFranchise: make(map[string]int),
	}

	for _, m := range members {
		s.TotalMembers++
		if m.IsActive {
			s.ActiveMembers++
		}
		if !m.JoinDate.Before(from) && m.JoinDate.Before(toExclusive) {
			s.NewMembers++
		}

		plan := m.PlanName
		if plan == "" {
			plan = "Unknown"
		}
		s.ByPlan[plan]++

		s.ByMonth[monthKey(m.JoinDate)]++

		franchise := m.FranchiseName
		if franchise == "" {
			franchise = "Unknown"
		}
		s.ByFranchise[franchise]++
	}

	s.InactiveMembers = s.TotalMembers - s.ActiveMembers
	s.ChurnRate = ratio(float64(s.InactiveMembers), float64(s.TotalMembers))
	return s
}

func composeOverview(p PaymentSummary, e ExpenseSummary, m MemberSummary) Overview {
	o := Overview{
		TotalRevenue:     p.TotalAmount,
		TotalExpenses:    e.TotalAmount,
		NetProfit:        p.TotalAmount - e.TotalAmount,
		TotalMembers:     m.TotalMembers,
		ActiveMembers:    m.ActiveMembers,
		InactiveMembers:  m.InactiveMembers,
		NewMembers:       m.NewMembers,
		ChurnRate:        m.ChurnRate,
		FranchiseProfit:  make(map[string]float64),
		FranchiseMargins: make(map[string]float64),
	}

	o.ProfitMargin = ratio(o.NetProfit, o.TotalRevenue)
	o.RevenuePerMember = safeDiv(o.TotalRevenue, float64(o.TotalMembers))

	// Per-franchise profit and margin over the union of franchises seen in
	// either series.
	for name, revenue := range p.ByFranchise {
		o.FranchiseProfit[name] = revenue - e.ByFranchise[name]
	}
	for name, spent := range e.ByFranchise {
		if _, seen := p.ByFranchise[name]; !seen {
			o.FranchiseProfit[name] = -spent
		}
	}
	for name, profit := range o.FranchiseProfit {
		o.FranchiseMargins[name] = ratio(profit, p.ByFranchise[name])
	}

	o.TopFranchise = maxKey(o.FranchiseProfit)

	// Month ranking over the union of month keys.
	monthProfit := make(map[string]float64)
	for month, revenue := range p.ByMonth {
		monthProfit[month] = revenue - e.ByMonth[month]
	}
	for month, spent := range e.ByMonth {
		if _, seen := p.ByMonth[month]; !seen {
			monthProfit[month] = -spent
		}
	}
	o.MostProfitableMonth = maxKey(monthProfit)
	o.HighestExpenseMonth = maxKey(e.ByMonth)

	return o
}

// maxKey returns the key with the largest value, or "" for an empty map.
// Ties break lexicographically so the result is deterministic.
func maxKey(m map[string]float64) string {
	best := ""
	var bestVal float64
	for k, v := range m {
		if best == "" || v > bestVal || (v == bestVal && k < best) {
			best = k
			bestVal = v
		}
	}
	return best
}
