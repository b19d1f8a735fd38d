package distribution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tallyhour/tallyhour/internal/apperr"
	"github.com/tallyhour/tallyhour/internal/index"
	"github.com/tallyhour/tallyhour/internal/kv"
	"github.com/tallyhour/tallyhour/internal/ledger"
	"github.com/tallyhour/tallyhour/internal/metrics"
	"github.com/tallyhour/tallyhour/internal/models"
)

// Result summarizes one distribution run.
type Result struct {
	ProjectID string
	Pool      float64
	Shares    []*models.ProfitShare
}

// Distributor runs profit distributions for projects.
type Distributor struct {
	store   kv.Store
	cascade *ledger.Cascade

	// Now supplies the current time; overridable in tests.
	Now func() time.Time
}

// New creates a distributor on the given store and cascade.
func New(store kv.Store, cascade *ledger.Cascade) *Distributor {
	return &Distributor{store: store, cascade: cascade, Now: time.Now}
}

// DistributeProjectProfits allocates the project's profit pool across its
// contributing members and books every resulting record in one atomic
// commit: profit shares, bonus earnings, summary updates, bonus budget
// transactions, and the project's aggregate adjustments.
//
// The pool is the project's configured share percentage of its total
// budget. The contribution measure is hours of time entries completed
// after the project's distribution watermark, which the same commit
// advances, so a run never pays out the same contribution twice: a second
// run over an unchanged ledger finds zero contribution and writes
// nothing.
func (d *Distributor) DistributeProjectProfits(ctx context.Context, projectID string) (*Result, error) {
	result, err := d.distribute(ctx, projectID)
	switch {
	case err == nil:
		metrics.DistributionTotal.WithLabelValues("ok").Inc()
	case apperr.IsContention(err):
		metrics.DistributionTotal.WithLabelValues("contention").Inc()
	default:
		metrics.DistributionTotal.WithLabelValues("rejected").Inc()
	}
	return result, err
}

func (d *Distributor) distribute(ctx context.Context, projectID string) (*Result, error) {
	for attempt := 0; attempt < kv.MaxCommitAttempts; attempt++ {
		projectPair, ok, err := d.store.Get(ctx, index.ProjectKey(projectID))
		if err != nil {
			return nil, fmt.Errorf("failed to get project: %w", err)
		}
		if !ok {
			return nil, apperr.NotFound("project not found")
		}
		project := &models.Project{}
		if err := kv.Decode(projectPair, project); err != nil {
			return nil, err
		}
		if !project.ProfitSharingEnabled {
			return nil, apperr.Precondition(apperr.CodeSharingDisabled, "profit sharing is disabled")
		}

		contributions, watermark, err := d.openContributions(ctx, project)
		if err != nil {
			return nil, err
		}
		if len(contributions) == 0 {
			return nil, apperr.Precondition(apperr.CodeNoContribution, "no contribution to distribute against")
		}

		pool := project.Budget * project.ProfitSharePercent / 100
		if pool <= 0 {
			return nil, apperr.Precondition(apperr.CodeNoContribution, "no distributable pool")
		}

		allocations, err := Allocate(pool, contributions)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindPrecondition, apperr.CodeNoContribution, "allocation failed", err)
		}

		batch := &kv.Batch{}
		batch.Check(index.ProjectKey(projectID), projectPair.Version)

		now := d.Now()
		nowUnix := now.Unix()
		periodStart, _ := models.PeriodBounds(now)

		shares := make([]*models.ProfitShare, 0, len(allocations))
		for _, alloc := range allocations {
			share := &models.ProfitShare{
				ID:         uuid.New().String(),
				ProjectID:  projectID,
				UserID:     alloc.UserID,
				Amount:     alloc.Amount,
				Percentage: alloc.Percentage,
				Status:     models.SharePending,
				CreatedAt:  nowUnix,
			}
			if err := putRecord(batch, index.ProfitShareKey(share.ID), share); err != nil {
				return nil, err
			}
			batch.Puts = append(batch.Puts, index.ProfitShareEntries(share)...)

			btx := &models.BudgetTransaction{
				ID:        uuid.New().String(),
				ProjectID: projectID,
				Type:      models.TransactionBonus,
				Amount:    -alloc.Amount,
				SourceID:  share.ID,
				CreatedAt: nowUnix,
			}
			if err := putRecord(batch, index.BudgetTransactionKey(btx.ID), btx); err != nil {
				return nil, err
			}
			batch.Puts = append(batch.Puts, index.BudgetTransactionEntries(btx)...)

			period, err := d.cascade.EnsurePayPeriod(ctx, alloc.UserID, now)
			if err != nil {
				return nil, err
			}
			if err := d.cascade.PlanEarnings(ctx, batch, alloc.UserID, projectID, period.ID, 0, alloc.Amount, 0, nowUnix); err != nil {
				return nil, err
			}
			if err := d.cascade.PlanUserSummary(ctx, batch, alloc.UserID, periodStart, 0, alloc.Amount, alloc.Amount, nowUnix); err != nil {
				return nil, err
			}
			shares = append(shares, share)
		}

		if err := d.cascade.PlanProjectSummary(ctx, batch, projectID, periodStart, 0, 0, pool, nowUnix); err != nil {
			return nil, err
		}

		project.RemainingBudget -= pool
		project.BonusPool += pool
		project.DistributedThrough = watermark
		if err := putRecord(batch, index.ProjectKey(projectID), project); err != nil {
			return nil, err
		}

		err = d.store.Commit(ctx, batch)
		if errors.Is(err, kv.ErrConflict) {
			metrics.CascadeRetryTotal.Inc()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to commit distribution: %w", err)
		}

		slog.Info("profits distributed",
			"project_id", projectID,
			"pool", pool,
			"members", len(shares),
			"remaining_budget", project.RemainingBudget,
		)
		return &Result{ProjectID: projectID, Pool: pool, Shares: shares}, nil
	}
	return nil, apperr.Contention("distribute profits", kv.MaxCommitAttempts)
}

// openContributions sums completed time-entry hours per user for entries
// completed after the project's distribution watermark, returning the new
// watermark (the newest counted completion timestamp). Filtering on
// completion time, not creation time, keeps an entry still pending during
// one run payable by the next: its completion necessarily lands after the
// watermark that run advanced to.
func (d *Distributor) openContributions(ctx context.Context, project *models.Project) ([]Contribution, int64, error) {
	entries, err := d.cascade.GetTimeEntriesByProject(ctx, project.ID)
	if err != nil {
		return nil, 0, err
	}

	hoursByUser := make(map[string]float64)
	var order []string
	watermark := project.DistributedThrough
	for _, entry := range entries {
		if entry.Status != models.EntryCompleted {
			continue
		}
		if entry.CompletedAt <= project.DistributedThrough {
			continue
		}
		if _, seen := hoursByUser[entry.UserID]; !seen {
			order = append(order, entry.UserID)
		}
		hoursByUser[entry.UserID] += entry.Hours
		if entry.CompletedAt > watermark {
			watermark = entry.CompletedAt
		}
	}

	contributions := make([]Contribution, 0, len(order))
	for _, userID := range order {
		contributions = append(contributions, Contribution{UserID: userID, Hours: hoursByUser[userID]})
	}
	return contributions, watermark, nil
}

func putRecord(batch *kv.Batch, key string, record any) error {
	value, err := kv.Encode(record)
	if err != nil {
		return err
	}
	batch.Put(key, value)
	return nil
}
