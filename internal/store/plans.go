package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
)

// PlanRepo provides scoped access to membership plans.
type PlanRepo struct{ db *sql.DB }

// NewPlanRepo creates a Postgres-backed plan repository.
func NewPlanRepo(db *sql.DB) *PlanRepo { return &PlanRepo{db: db} }

// ByScope returns every plan visible inside the scope. The import pipeline
// resolves plan text against this list.
func (r *PlanRepo) ByScope(ctx context.Context, scope domain.Scope) ([]domain.MembershipPlan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, franchise_id, name, price, duration_days, created_at
		FROM membership_plans
		WHERE account_id = $1 AND franchise_id = ANY($2)
		ORDER BY name
	`, scope.AccountID, pq.Array(scope.FranchiseIDs))
	if err != nil {
		return nil, fmt.Errorf("plans by scope: %w", err)
	}
	defer rows.Close()

	var out []domain.MembershipPlan
	for rows.Next() {
		var p domain.MembershipPlan
		if err := rows.Scan(&p.ID, &p.AccountID, &p.FranchiseID, &p.Name, &p.Price, &p.DurationDays, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts a plan.
func (r *PlanRepo) Create(ctx context.Context, p *domain.MembershipPlan) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO membership_plans (id, account_id, franchise_id, name, price, duration_days, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())
	`, p.ID, p.AccountID, p.FranchiseID, p.Name, p.Price, p.DurationDays)
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}
