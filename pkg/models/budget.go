package models

import "time"

// BudgetLedger is the per-workspace record of allocated vs. used funds.
// Amounts are whole currency units. used <= allocated is a health signal,
// not a write-time constraint: pending expenses may project an overage.
type BudgetLedger struct {
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Allocated   int64     `json:"allocated" db:"allocated"`
	Used        int64     `json:"used" db:"used"`
	Currency    string    `json:"currency" db:"currency"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type BudgetRequestStatus string

const (
	BudgetRequestPending  BudgetRequestStatus = "pending"
	BudgetRequestApproved BudgetRequestStatus = "approved"
	BudgetRequestRejected BudgetRequestStatus = "rejected"
)

// BudgetRequest asks an ancestor workspace for funds. On approval the
// requesting workspace's ledger allocation grows by RequestedAmount in the
// same transaction that stamps the decision.
type BudgetRequest struct {
	ID                     string              `json:"id" db:"id"`
	RequestingWorkspaceID  string              `json:"requesting_workspace_id" db:"requesting_workspace_id"`
	TargetWorkspaceID      string              `json:"target_workspace_id" db:"target_workspace_id"`
	RequestedAmount        int64               `json:"requested_amount" db:"requested_amount"`
	Reason                 string              `json:"reason" db:"reason"`
	Status                 BudgetRequestStatus `json:"status" db:"status"`
	RequestedBy            string              `json:"requested_by" db:"requested_by"`
	ReviewedBy             *string             `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt             *time.Time          `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewNotes            string              `json:"review_notes,omitempty" db:"review_notes"`
	CreatedAt              time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at" db:"updated_at"`
}

type ExpenseStatus string

const (
	ExpensePending   ExpenseStatus = "pending"
	ExpenseConfirmed ExpenseStatus = "confirmed"
)

// Expense is a recorded spend against a workspace budget. Pending expenses
// count toward projected spend only; confirming one moves its amount into the
// ledger's used column.
type Expense struct {
	ID          string        `json:"id" db:"id"`
	WorkspaceID string        `json:"workspace_id" db:"workspace_id"`
	Amount      int64         `json:"amount" db:"amount"`
	Description string        `json:"description,omitempty" db:"description"`
	Status      ExpenseStatus `json:"status" db:"status"`
	RecordedBy  string        `json:"recorded_by" db:"recorded_by"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// BudgetHealth is the advisory band derived from utilization. Bands never
// block a transaction.
type BudgetHealth string

const (
	HealthHealthy    BudgetHealth = "healthy"
	HealthModerate   BudgetHealth = "moderate"
	HealthHigh       BudgetHealth = "high"
	HealthOverBudget BudgetHealth = "over-budget"
)

// BudgetForecast is the read-only derived view over a workspace ledger and
// its pending expenses.
type BudgetForecast struct {
	WorkspaceID          string       `json:"workspace_id"`
	Currency             string       `json:"currency"`
	Allocated            int64        `json:"allocated"`
	Used                 int64        `json:"used"`
	PendingAmount        int64        `json:"pending_amount"`
	ProjectedSpend       int64        `json:"projected_spend"`
	Utilization          float64      `json:"utilization"`
	ProjectedUtilization float64      `json:"projected_utilization"`
	Health               BudgetHealth `json:"health"`
	ProjectedHealth      BudgetHealth `json:"projected_health"`
}
