package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
)

// FranchiseRepo provides access to franchises, scoped by account.
type FranchiseRepo struct{ db *sql.DB }

// NewFranchiseRepo creates a Postgres-backed franchise repository.
func NewFranchiseRepo(db *sql.DB) *FranchiseRepo { return &FranchiseRepo{db: db} }

// ByAccount returns every franchise under an account. Scope resolution for
// the "all franchises" analytics view starts here.
func (r *FranchiseRepo) ByAccount(ctx context.Context, accountID string) ([]domain.Franchise, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, name, COALESCE(city,''), created_at
		FROM franchises
		WHERE account_id = $1
		ORDER BY name
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("franchises by account: %w", err)
	}
	defer rows.Close()

	var out []domain.Franchise
	for rows.Next() {
		var f domain.Franchise
		if err := rows.Scan(&f.ID, &f.AccountID, &f.Name, &f.City, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan franchise: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Create inserts a franchise.
func (r *FranchiseRepo) Create(ctx context.Context, f *domain.Franchise) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO franchises (id, account_id, name, city, created_at)
		VALUES ($1,$2,$3,$4,NOW())
	`, f.ID, f.AccountID, f.Name, f.City)
	if err != nil {
		return fmt.Errorf("create franchise: %w", err)
	}
	return nil
}
