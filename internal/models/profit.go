package models

// ShareStatus is the payout state of a profit share.
type ShareStatus string

const (
	SharePending ShareStatus = "pending"
	SharePaid    ShareStatus = "paid"
)

// Valid reports whether the status is one of the known variants.
func (s ShareStatus) Valid() bool {
	return s == SharePending || s == SharePaid
}

// ProfitShare is one member's allocation from a profit distribution run.
type ProfitShare struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`

	// Amount is the member's slice of the distributed pool. Amounts from
	// one run sum exactly to the pool.
	Amount float64 `json:"amount"`

	// Percentage is the member's share of total contribution, 0-100.
	Percentage float64 `json:"percentage"`

	Status    ShareStatus `json:"status"`
	CreatedAt int64       `json:"created_at"`
}
