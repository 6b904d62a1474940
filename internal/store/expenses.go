package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
)

// ExpenseRepo provides scoped access to the expenses collection.
type ExpenseRepo struct{ db *sql.DB }

// NewExpenseRepo creates a Postgres-backed expense repository.
func NewExpenseRepo(db *sql.DB) *ExpenseRepo { return &ExpenseRepo{db: db} }

// Insert records an expense.
func (r *ExpenseRepo) Insert(ctx context.Context, e *domain.Expense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses
			(id, account_id, franchise_id, category, description, amount, expense_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
	`, e.ID, e.AccountID, e.FranchiseID, e.Category, e.Description, e.Amount, e.ExpenseDate)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

// InWindow returns scoped expenses with expense_date in [from, toExclusive),
// with the franchise name embedded.
func (r *ExpenseRepo) InWindow(ctx context.Context, scope domain.Scope, from, toExclusive time.Time) ([]domain.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.account_id, e.franchise_id, COALESCE(e.category,''),
		       COALESCE(e.description,''), e.amount, e.expense_date, e.created_at,
		       COALESCE(f.name,'')
		FROM expenses e
		LEFT JOIN franchises f ON f.id = e.franchise_id
		WHERE e.account_id = $1 AND e.franchise_id = ANY($2)
		  AND e.expense_date >= $3 AND e.expense_date < $4
		ORDER BY e.expense_date
	`, scope.AccountID, pq.Array(scope.FranchiseIDs), from, toExclusive)
	if err != nil {
		return nil, fmt.Errorf("expenses in window: %w", err)
	}
	defer rows.Close()

	var out []domain.Expense
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(
			&e.ID, &e.AccountID, &e.FranchiseID, &e.Category,
			&e.Description, &e.Amount, &e.ExpenseDate, &e.CreatedAt,
			&e.FranchiseName,
		); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
