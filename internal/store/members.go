package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
)

// MemberRepo provides scoped access to the members collection.
type MemberRepo struct{ db *sql.DB }

// NewMemberRepo creates a Postgres-backed member repository.
func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{db: db} }

// MemberFilter narrows List results. Zero values mean "no constraint".
type MemberFilter struct {
	Search   string // case-insensitive substring on name or email
	Active   *bool
	PlanID   string
	Limit    int
	Offset   int
}

const memberColumns = `
	m.id, m.account_id, m.franchise_id, m.name,
	COALESCE(m.email,''), COALESCE(m.phone,''), COALESCE(m.gender,''),
	m.dob, m.join_date, m.is_active, m.active_plan_id,
	m.last_payment, m.next_payment,
	COALESCE(p.name,''), COALESCE(f.name,''),
	m.created_at, m.updated_at`

const memberJoins = `
	FROM members m
	LEFT JOIN membership_plans p ON p.id = m.active_plan_id
	LEFT JOIN franchises f ON f.id = m.franchise_id`

func scanMember(row interface{ Scan(...interface{}) error }) (*domain.Member, error) {
	m := &domain.Member{}
	err := row.Scan(
		&m.ID, &m.AccountID, &m.FranchiseID, &m.Name,
		&m.Email, &m.Phone, &m.Gender,
		&m.DOB, &m.JoinDate, &m.IsActive, &m.PlanID,
		&m.LastPayment, &m.NextPayment,
		&m.PlanName, &m.FranchiseName,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Insert creates a new member row under the member's own scope ids.
func (r *MemberRepo) Insert(ctx context.Context, m *domain.Member) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO members
			(id, account_id, franchise_id, name, email, phone, gender,
			 dob, join_date, is_active, active_plan_id, last_payment, next_payment,
			 created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW(),NOW())
	`, m.ID, m.AccountID, m.FranchiseID, m.Name, m.Email, m.Phone, m.Gender,
		m.DOB, m.JoinDate, m.IsActive, m.PlanID, m.LastPayment, m.NextPayment)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// Get fetches one member inside the scope.
func (r *MemberRepo) Get(ctx context.Context, scope domain.Scope, id string) (*domain.Member, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT`+memberColumns+memberJoins+`
		WHERE m.id = $1 AND m.account_id = $2 AND m.franchise_id = ANY($3)
	`, id, scope.AccountID, pq.Array(scope.FranchiseIDs))

	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// List returns members inside the scope matching the filter plus the total count.
func (r *MemberRepo) List(ctx context.Context, scope domain.Scope, f MemberFilter) ([]domain.Member, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := ` WHERE m.account_id = $1 AND m.franchise_id = ANY($2)`
	args := []interface{}{scope.AccountID, pq.Array(scope.FranchiseIDs)}
	idx := 3

	if f.Search != "" {
		where += fmt.Sprintf(" AND (m.name ILIKE $%d OR m.email ILIKE $%d)", idx, idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	if f.Active != nil {
		where += fmt.Sprintf(" AND m.is_active = $%d", idx)
		args = append(args, *f.Active)
		idx++
	}
	if f.PlanID != "" {
		where += fmt.Sprintf(" AND m.active_plan_id = $%d", idx)
		args = append(args, f.PlanID)
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members m`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count members: %w", err)
	}

	q := `SELECT` + memberColumns + memberJoins + where +
		fmt.Sprintf(" ORDER BY m.created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, *m)
	}
	return out, total, rows.Err()
}

// AllInScope returns every member in the scope, with plan and franchise names
// embedded. The analytics aggregator consumes this without a date filter;
// "new members" is derived afterwards from join_date.
func (r *MemberRepo) AllInScope(ctx context.Context, scope domain.Scope) ([]domain.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+memberColumns+memberJoins+`
		WHERE m.account_id = $1 AND m.franchise_id = ANY($2)
		ORDER BY m.join_date
	`, scope.AccountID, pq.Array(scope.FranchiseIDs))
	if err != nil {
		return nil, fmt.Errorf("members in scope: %w", err)
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Update patches mutable member fields. Nil pointers leave the column untouched.
type MemberUpdate struct {
	Name        *string
	Email       *string
	Phone       *string
	Gender      *string
	PlanID      *string
	IsActive    *bool
	NextPayment *sql.NullTime
}

// Update applies the patch to one member inside the scope.
func (r *MemberRepo) Update(ctx context.Context, scope domain.Scope, id string, u MemberUpdate) error {
	sets := []string{}
	args := []interface{}{}
	idx := 1
	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Email != nil {
		add("email", *u.Email)
	}
	if u.Phone != nil {
		add("phone", *u.Phone)
	}
	if u.Gender != nil {
		add("gender", *u.Gender)
	}
	if u.PlanID != nil {
		add("active_plan_id", *u.PlanID)
	}
	if u.IsActive != nil {
		add("is_active", *u.IsActive)
	}
	if u.NextPayment != nil {
		add("next_payment", *u.NextPayment)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW()")

	q := "UPDATE members SET " + strings.Join(sets, ", ") +
		fmt.Sprintf(" WHERE id = $%d AND account_id = $%d AND franchise_id = ANY($%d)", idx, idx+1, idx+2)
	args = append(args, id, scope.AccountID, pq.Array(scope.FranchiseIDs))

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one member inside the scope.
func (r *MemberRepo) Delete(ctx context.Context, scope domain.Scope, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM members WHERE id = $1 AND account_id = $2 AND franchise_id = ANY($3)
	`, id, scope.AccountID, pq.Array(scope.FranchiseIDs))
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
