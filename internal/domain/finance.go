package domain

import "time"

// Payment is a recorded member payment. FinalAmount, when present, is the
// amount after discounts and is preferred over Amount in all aggregation.
type Payment struct {
	ID          string     `json:"id" db:"id"`
	AccountID   string     `json:"account_id" db:"account_id"`
	FranchiseID string     `json:"franchise_id" db:"franchise_id"`
	MemberID    *string    `json:"member_id" db:"member_id"`
	PlanID      *string    `json:"plan_id" db:"plan_id"`
	Amount      float64    `json:"amount" db:"amount"`
	FinalAmount *float64   `json:"final_amount" db:"final_amount"`
	Method      string     `json:"method" db:"method"`
	PaidAt      time.Time  `json:"paid_at" db:"paid_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`

	// Embedded relation names, populated by queries.
	PlanName      string `json:"plan_name,omitempty" db:"plan_name"`
	FranchiseName string `json:"franchise_name,omitempty" db:"franchise_name"`
}

// EffectiveAmount returns FinalAmount when set, otherwise Amount.
func (p Payment) EffectiveAmount() float64 {
	if p.FinalAmount != nil {
		return *p.FinalAmount
	}
	return p.Amount
}

// Expense is a cost incurred by a franchise.
type Expense struct {
	ID          string    `json:"id" db:"id"`
	AccountID   string    `json:"account_id" db:"account_id"`
	FranchiseID string    `json:"franchise_id" db:"franchise_id"`
	Category    string    `json:"category" db:"category"`
	Description string    `json:"description" db:"description"`
	Amount      float64   `json:"amount" db:"amount"`
	ExpenseDate time.Time `json:"expense_date" db:"expense_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	FranchiseName string `json:"franchise_name,omitempty" db:"franchise_name"`
}
