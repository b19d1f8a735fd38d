package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tallyhour/tallyhour/internal/apperr"
	"github.com/tallyhour/tallyhour/internal/index"
	"github.com/tallyhour/tallyhour/internal/kv"
	"github.com/tallyhour/tallyhour/internal/models"
)

// EnsurePayPeriod returns the pay period covering date for the user,
// creating it when absent. A pay period's ID is its start date, so the
// primary key itself is the (user, month) singleton: creation commits
// with an absence check on it, and a lost race simply re-reads the
// winner's record.
func (c *Cascade) EnsurePayPeriod(ctx context.Context, userID string, date time.Time) (*models.PayPeriod, error) {
	start, end := models.PeriodBounds(date)
	key := index.PayPeriodKey(userID, start)

	for attempt := 0; attempt < kv.MaxCommitAttempts; attempt++ {
		pair, ok, err := c.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to get pay period: %w", err)
		}
		if ok {
			period := &models.PayPeriod{}
			if err := kv.Decode(pair, period); err != nil {
				return nil, err
			}
			return period, nil
		}

		period := &models.PayPeriod{
			ID:        start,
			UserID:    userID,
			StartDate: start,
			EndDate:   end,
			Status:    models.PeriodOpen,
			CreatedAt: c.Now().Unix(),
		}
		batch := &kv.Batch{}
		batch.CheckAbsent(key)
		if err := putRecord(batch, key, period); err != nil {
			return nil, err
		}
		batch.Puts = append(batch.Puts, index.PayPeriodEntries(period)...)

		err = c.store.Commit(ctx, batch)
		if errors.Is(err, kv.ErrConflict) {
			// A concurrent caller created the period; re-read it.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create pay period: %w", err)
		}
		slog.Info("pay period created", "user_id", userID, "start", start, "end", end)
		return period, nil
	}
	return nil, apperr.Contention("ensure pay period", kv.MaxCommitAttempts)
}

// GetPayPeriods lists all pay periods for a user, oldest first.
func (c *Cascade) GetPayPeriods(ctx context.Context, userID string) ([]*models.PayPeriod, error) {
	pairs, err := c.store.Scan(ctx, index.PayPeriodPrefix(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to scan pay periods: %w", err)
	}
	periods := make([]*models.PayPeriod, 0, len(pairs))
	for _, pair := range pairs {
		period := &models.PayPeriod{}
		if err := kv.Decode(pair, period); err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	return periods, nil
}
