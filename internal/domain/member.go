package domain

import "time"

// Member represents a gym member belonging to exactly one franchise.
type Member struct {
	ID          string     `json:"id" db:"id"`
	AccountID   string     `json:"account_id" db:"account_id"`
	FranchiseID string     `json:"franchise_id" db:"franchise_id"`
	Name        string     `json:"name" db:"name"`
	Email       string     `json:"email" db:"email"`
	Phone       string     `json:"phone" db:"phone"`
	Gender      string     `json:"gender" db:"gender"`
	DOB         *time.Time `json:"dob" db:"dob"`
	JoinDate    time.Time  `json:"join_date" db:"join_date"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	PlanID      *string    `json:"active_plan_id" db:"active_plan_id"`
	LastPayment *time.Time `json:"last_payment" db:"last_payment"`
	NextPayment *time.Time `json:"next_payment" db:"next_payment"`

	// PlanName and FranchiseName are populated by queries that embed the
	// related rows; they are never written back.
	PlanName      string `json:"plan_name,omitempty" db:"plan_name"`
	FranchiseName string `json:"franchise_name,omitempty" db:"franchise_name"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MembershipPlan is a billable plan offered by a franchise.
type MembershipPlan struct {
	ID           string    `json:"id" db:"id"`
	AccountID    string    `json:"account_id" db:"account_id"`
	FranchiseID  string    `json:"franchise_id" db:"franchise_id"`
	Name         string    `json:"name" db:"name"`
	Price        float64   `json:"price" db:"price"`
	DurationDays int       `json:"duration_days" db:"duration_days"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Franchise is a single gym location (subaccount) under an account.
type Franchise struct {
	ID        string    `json:"id" db:"id"`
	AccountID string    `json:"account_id" db:"account_id"`
	Name      string    `json:"name" db:"name"`
	City      string    `json:"city" db:"city"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
