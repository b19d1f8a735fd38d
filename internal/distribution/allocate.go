// Package distribution computes proportional profit distribution across
// project members and books the results through the ledger cascade.
package distribution

import "fmt"

// Contribution is one member's share of the contribution measure.
type Contribution struct {
	UserID string
	Hours  float64
}

// Allocation is one member's computed slice of the pool.
type Allocation struct {
	UserID     string
	Amount     float64
	Percentage float64
}

// Allocate splits pool proportionally to contribution hours. The returned
// amounts sum to pool exactly: any floating-point remainder is folded into
// the largest allocation so the pool is conserved.
func Allocate(pool float64, contributions []Contribution) ([]Allocation, error) {
	if pool <= 0 {
		return nil, fmt.Errorf("pool must be positive")
	}

	var total float64
	for _, c := range contributions {
		if c.Hours < 0 {
			return nil, fmt.Errorf("negative contribution for %s", c.UserID)
		}
		total += c.Hours
	}
	if total == 0 {
		return nil, fmt.Errorf("total contribution is zero")
	}

	allocations := make([]Allocation, 0, len(contributions))
	var allocated float64
	largest := -1
	for _, c := range contributions {
		if c.Hours == 0 {
			continue
		}
		amount := pool * (c.Hours / total)
		allocations = append(allocations, Allocation{
			UserID:     c.UserID,
			Amount:     amount,
			Percentage: c.Hours / total * 100,
		})
		allocated += amount
		if largest < 0 || amount > allocations[largest].Amount {
			largest = len(allocations) - 1
		}
	}

	// Conservation: push any rounding drift into the largest share.
	if remainder := pool - allocated; remainder != 0 && largest >= 0 {
		allocations[largest].Amount += remainder
	}
	return allocations, nil
}
