package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/fitgrid/franchise-dashboard/internal/domain"
)

func setupMemberRepo(t *testing.T) (*MemberRepo, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	return NewMemberRepo(db), mock, func() { db.Close() }
}

func memberRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "account_id", "franchise_id", "name", "email", "phone", "gender",
		"dob", "join_date", "is_active", "active_plan_id", "last_payment", "next_payment",
		"plan_name", "franchise_name", "created_at", "updated_at",
	})
}

func TestMemberRepo_List_ScopedAndFiltered(t *testing.T) {
	repo, mock, cleanup := setupMemberRepo(t)
	defer cleanup()

	scope := domain.Scope{AccountID: "acc-1", FranchiseIDs: []string{"fr-1", "fr-2"}}
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM members m")).
		WithArgs("acc-1", pq.Array([]string{"fr-1", "fr-2"}), "%john%", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery(regexp.QuoteMeta("franchise_id = ANY($2)")).
		WithArgs("acc-1", pq.Array([]string{"fr-1", "fr-2"}), "%john%", true, 50, 0).
		WillReturnRows(memberRows().AddRow(
			"m-1", "acc-1", "fr-1", "John Doe", "john@example.com", "", "",
			nil, now, true, nil, nil, nil,
			"Gold Annual", "Downtown", now, now,
		))

	active := true
	members, total, err := repo.List(context.Background(), scope, MemberFilter{Search: "john", Active: &active})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 1 || len(members) != 1 {
		t.Fatalf("total = %d, len = %d, want 1/1", total, len(members))
	}
	if members[0].PlanName != "Gold Annual" || members[0].FranchiseName != "Downtown" {
		t.Errorf("embedded names = %q/%q", members[0].PlanName, members[0].FranchiseName)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMemberRepo_Get_NotFound(t *testing.T) {
	repo, mock, cleanup := setupMemberRepo(t)
	defer cleanup()

	scope := domain.Scope{AccountID: "acc-1", FranchiseIDs: []string{"fr-1"}}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.id = $1")).
		WithArgs("missing", "acc-1", pq.Array([]string{"fr-1"})).
		WillReturnRows(memberRows())

	_, err := repo.Get(context.Background(), scope, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemberRepo_Update_PartialSet(t *testing.T) {
	repo, mock, cleanup := setupMemberRepo(t)
	defer cleanup()

	scope := domain.Scope{AccountID: "acc-1", FranchiseIDs: []string{"fr-1"}}
	name := "New Name"
	inactive := false

	// Only the provided fields appear in SET, in declaration order.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE members SET name = $1, is_active = $2, updated_at = NOW() WHERE id = $3")).
		WithArgs("New Name", false, "m-1", "acc-1", pq.Array([]string{"fr-1"})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), scope, "m-1", MemberUpdate{Name: &name, IsActive: &inactive})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMemberRepo_Update_EmptyPatchIsNoop(t *testing.T) {
	repo, mock, cleanup := setupMemberRepo(t)
	defer cleanup()

	scope := domain.Scope{AccountID: "acc-1", FranchiseIDs: []string{"fr-1"}}
	if err := repo.Update(context.Background(), scope, "m-1", MemberUpdate{}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no SQL should run for an empty patch: %v", err)
	}
}

func TestMemberRepo_Delete_OutsideScope(t *testing.T) {
	repo, mock, cleanup := setupMemberRepo(t)
	defer cleanup()

	scope := domain.Scope{AccountID: "acc-1", FranchiseIDs: []string{"fr-1"}}
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM members")).
		WithArgs("m-9", "acc-1", pq.Array([]string{"fr-1"})).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), scope, "m-9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
