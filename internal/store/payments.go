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

// PaymentRepo provides scoped access to the payments collection.
type PaymentRepo struct{ db *sql.DB }

// NewPaymentRepo creates a Postgres-backed payment repository.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// Insert records a payment.
func (r *PaymentRepo) Insert(ctx context.Context, p *domain.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments
			(id, account_id, franchise_id, member_id, plan_id,
			 amount, final_amount, method, paid_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
	`, p.ID, p.AccountID, p.FranchiseID, p.MemberID, p.PlanID,
		p.Amount, p.FinalAmount, p.Method, p.PaidAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// InWindow returns scoped payments with paid_at in [from, toExclusive), with
// plan and franchise names embedded.
func (r *PaymentRepo) InWindow(ctx context.Context, scope domain.Scope, from, toExclusive time.Time) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.account_id, p.franchise_id, p.member_id, p.plan_id,
		       p.amount, p.final_amount, COALESCE(p.method,''), p.paid_at, p.created_at,
		       COALESCE(mp.name,''), COALESCE(f.name,'')
		FROM payments p
		LEFT JOIN membership_plans mp ON mp.id = p.plan_id
		LEFT JOIN franchises f ON f.id = p.franchise_id
		WHERE p.account_id = $1 AND p.franchise_id = ANY($2)
		  AND p.paid_at >= $3 AND p.paid_at < $4
		ORDER BY p.paid_at
	`, scope.AccountID, pq.Array(scope.FranchiseIDs), from, toExclusive)
	if err != nil {
		return nil, fmt.Errorf("payments in window: %w", err)
	}
	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID, &p.AccountID, &p.FranchiseID, &p.MemberID, &p.PlanID,
			&p.Amount, &p.FinalAmount, &p.Method, &p.PaidAt, &p.CreatedAt,
			&p.PlanName, &p.FranchiseName,
		); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
