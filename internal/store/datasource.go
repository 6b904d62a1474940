package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
)

// DataSource bundles the scoped repositories the analytics aggregator reads
// from. It satisfies analytics.DataSource.
type DataSource struct {
	payments *PaymentRepo
	expenses *ExpenseRepo
	members  *MemberRepo
}

// NewDataSource creates the aggregator-facing read adapter.
func NewDataSource(db *sql.DB) *DataSource {
	return &DataSource{
		payments: NewPaymentRepo(db),
		expenses: NewExpenseRepo(db),
		members:  NewMemberRepo(db),
	}
}

func (d *DataSource) PaymentsInWindow(ctx context.Context, scope domain.Scope, from, toExclusive time.Time) ([]domain.Payment, error) {
	return d.payments.InWindow(ctx, scope, from, toExclusive)
}

func (d *DataSource) ExpensesInWindow(ctx context.Context, scope domain.Scope, from, toExclusive time.Time) ([]domain.Expense, error) {
	return d.expenses.InWindow(ctx, scope, from, toExclusive)
}

func (d *DataSource) MembersInScope(ctx context.Context, scope domain.Scope) ([]domain.Member, error) {
	return d.members.AllInScope(ctx, scope)
}
