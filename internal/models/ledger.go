package models

import "time"

// DateLayout is the calendar-date layout used in entry dates, period
// bounds, and index keys. Lexicographic order matches chronological order.
const DateLayout = "2006-01-02"

// EntryStatus is the lifecycle state of a time entry.
type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryCompleted EntryStatus = "completed"
)

// Valid reports whether the status is one of the known variants.
func (s EntryStatus) Valid() bool {
	return s == EntryPending || s == EntryCompleted
}

// TimeEntry is an immutable ledger record of billable work. Only Status
// may change after creation (Pending -> Completed).
type TimeEntry struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`

	// Hours is the amount of work recorded.
	Hours float64 `json:"hours"`

	// CostImpact is hours times the member's snapshotted hourly rate,
	// fixed at creation.
	CostImpact float64 `json:"cost_impact"`

	Description string `json:"description"`

	// Date is the calendar date the work applies to, in DateLayout.
	Date string `json:"date"`

	Status EntryStatus `json:"status"`

	// PayPeriodID is the pay period covering Date for this user.
	PayPeriodID string `json:"pay_period_id"`

	CreatedAt int64 `json:"created_at"`

	// CompletedAt is the Unix timestamp of the pending -> completed
	// transition, zero while pending. Profit distribution counts and
	// watermarks entries by this, not CreatedAt, so work completed after
	// a run is still paid by the next one.
	CompletedAt int64 `json:"completed_at"`
}

// TransactionType distinguishes budget debits by cause.
type TransactionType string

const (
	TransactionTime  TransactionType = "time"
	TransactionBonus TransactionType = "bonus"
)

// Valid reports whether the type is one of the known variants.
func (t TransactionType) Valid() bool {
	return t == TransactionTime || t == TransactionBonus
}

// BudgetTransaction is an append-only record of a budget adjustment.
// Amount is negative for debits. The project's RemainingBudget always
// equals Budget plus the sum of its transactions.
type BudgetTransaction struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"project_id"`
	Type      TransactionType `json:"type"`
	Amount    float64         `json:"amount"`

	// SourceID references the record that caused the adjustment: a time
	// entry for Type time, a profit share for Type bonus.
	SourceID string `json:"source_id"`

	CreatedAt int64 `json:"created_at"`
}

// PeriodStatus is the lifecycle state of a pay period.
type PeriodStatus string

const (
	PeriodOpen   PeriodStatus = "open"
	PeriodClosed PeriodStatus = "closed"
)

// Valid reports whether the status is one of the known variants.
func (s PeriodStatus) Valid() bool {
	return s == PeriodOpen || s == PeriodClosed
}

// PayPeriod is a calendar-month earnings window for one user. At most one
// exists per (user, month); lookup-or-create semantics.
type PayPeriod struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// StartDate and EndDate bound the period, inclusive, in DateLayout.
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	Status    PeriodStatus `json:"status"`
	CreatedAt int64        `json:"created_at"`
}

// PeriodBounds returns the first and last day of the calendar month
// containing date.
func PeriodBounds(date time.Time) (start, end string) {
	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(DateLayout), last.Format(DateLayout)
}

// Earnings is the per (user, project, pay period) breakdown of amounts
// earned. Additive: each ledger write increments the matching record.
type Earnings struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	ProjectID   string `json:"project_id"`
	PayPeriodID string `json:"pay_period_id"`

	// RegularAmount accumulates time-entry cost; BonusAmount accumulates
	// profit shares.
	RegularAmount float64 `json:"regular_amount"`
	BonusAmount   float64 `json:"bonus_amount"`

	// Hours accumulates the hours behind RegularAmount.
	Hours float64 `json:"hours"`

	UpdatedAt int64 `json:"updated_at"`
}

// UserFinancialSummary is a per (user, month) rollup of the ledger.
// Cache only: re-derivable from time entries and earnings.
type UserFinancialSummary struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	PeriodStart string `json:"period_start"`

	TotalHours    float64 `json:"total_hours"`
	TotalEarnings float64 `json:"total_earnings"`
	BonusEarnings float64 `json:"bonus_earnings"`

	UpdatedAt int64 `json:"updated_at"`
}

// ProjectFinancialSummary is a per (project, month) rollup of the ledger.
// Cache only: re-derivable from time entries and profit shares.
type ProjectFinancialSummary struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	PeriodStart string `json:"period_start"`

	TotalHours float64 `json:"total_hours"`
	TotalCost  float64 `json:"total_cost"`
	BonusPaid  float64 `json:"bonus_paid"`

	UpdatedAt int64 `json:"updated_at"`
}
