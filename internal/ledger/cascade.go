// Package ledger implements the transactional cascade that turns billable
// work into financial facts: time entries, budget transactions, earnings,
// and the derived summaries kept consistent with them.
//
// Every aggregate (remaining budget, member hours, earnings, summaries) is
// updated under a version check inside the same commit as the ledger
// records that justify the update. A conflicting commit is replanned from
// fresh reads, re-validating business preconditions, a bounded number of
// times before surfacing contention.
package ledger

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
	"github.com/tallyhour/tallyhour/internal/metrics"
	"github.com/tallyhour/tallyhour/internal/models"
)

// Cascade appends ledger records and maintains the derived aggregates.
type Cascade struct {
	store kv.Store

	// Now supplies the current time; overridable in tests.
	Now func() time.Time
}

// NewCascade creates a cascade on the given store.
func NewCascade(store kv.Store) *Cascade {
	return &Cascade{store: store, Now: time.Now}
}

// Plan is the prepared write set for one time entry: the entry itself,
// its budget transaction, the earnings increment, both summary updates,
// and the project/member aggregate adjustments, with version checks on
// everything read. Callers may merge further checks and deletes before
// committing, which is how timer stop joins its cleanup to the entry
// commit.
type Plan struct {
	Batch *kv.Batch
	Entry *models.TimeEntry
}

// CreateTimeEntry records billable work against a project. The member's
// snapshotted rate prices the entry; the whole cascade commits
// atomically, retried with fresh reads on version conflicts.
func (c *Cascade) CreateTimeEntry(ctx context.Context, projectID, userID string, hours float64, description, date string) (*models.TimeEntry, error) {
	for attempt := 0; attempt < kv.MaxCommitAttempts; attempt++ {
		plan, err := c.PlanTimeEntry(ctx, projectID, userID, hours, description, date)
		if err != nil {
			return nil, err
		}
		err = c.store.Commit(ctx, plan.Batch)
		if errors.Is(err, kv.ErrConflict) {
			metrics.CascadeRetryTotal.Inc()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to commit time entry: %w", err)
		}
		slog.Info("time entry created",
			"entry_id", plan.Entry.ID,
			"project_id", projectID,
			"user_id", userID,
			"hours", hours,
			"cost_impact", plan.Entry.CostImpact,
		)
		return plan.Entry, nil
	}
	return nil, apperr.Contention("create time entry", kv.MaxCommitAttempts)
}

// PlanTimeEntry validates preconditions and builds the full cascade batch
// for one time entry without committing it. Business preconditions are
// re-validated on every call, so retry loops that replan never resubmit a
// stale write set.
func (c *Cascade) PlanTimeEntry(ctx context.Context, projectID, userID string, hours float64, description, date string) (*Plan, error) {
	if hours <= 0 {
		return nil, apperr.Validation("hours must be positive")
	}
	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, apperr.Validation("date must be YYYY-MM-DD")
	}

	memberPair, ok, err := c.store.Get(ctx, index.ProjectMemberKey(projectID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if !ok {
		return nil, apperr.Precondition(apperr.CodeNotAMember, "user is not a project member")
	}
	member := &models.ProjectMember{}
	if err := kv.Decode(memberPair, member); err != nil {
		return nil, err
	}

	projectPair, ok, err := c.store.Get(ctx, index.ProjectKey(projectID))
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

	period, err := c.EnsurePayPeriod(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	now := c.Now().Unix()
	cost := hours * member.HourlyRate

	entry := &models.TimeEntry{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		UserID:      userID,
		Hours:       hours,
		CostImpact:  cost,
		Description: description,
		Date:        date,
		Status:      models.EntryPending,
		PayPeriodID: period.ID,
		CreatedAt:   now,
	}
	btx := &models.BudgetTransaction{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Type:      models.TransactionTime,
		Amount:    -cost,
		SourceID:  entry.ID,
		CreatedAt: now,
	}

	batch := &kv.Batch{}

	// Ledger records: entry, transaction, and their indexes.
	if err := putRecord(batch, index.TimeEntryKey(entry.ID), entry); err != nil {
		return nil, err
	}
	batch.Puts = append(batch.Puts, index.TimeEntryEntries(entry)...)
	if err := putRecord(batch, index.BudgetTransactionKey(btx.ID), btx); err != nil {
		return nil, err
	}
	batch.Puts = append(batch.Puts, index.BudgetTransactionEntries(btx)...)

	// Earnings increment for (user, project, period).
	if err := c.PlanEarnings(ctx, batch, userID, projectID, period.ID, cost, 0, hours, now); err != nil {
		return nil, err
	}

	// Monthly summary rollups.
	periodStart := period.StartDate
	if err := c.PlanUserSummary(ctx, batch, userID, periodStart, hours, cost, 0, now); err != nil {
		return nil, err
	}
	if err := c.PlanProjectSummary(ctx, batch, projectID, periodStart, hours, cost, 0, now); err != nil {
		return nil, err
	}

	// Derived aggregates, guarded by the versions read above.
	project.RemainingBudget -= cost
	batch.Check(index.ProjectKey(projectID), projectPair.Version)
	if err := putRecord(batch, index.ProjectKey(projectID), project); err != nil {
		return nil, err
	}
	if project.RemainingBudget < 0 {
		slog.Warn("project budget overdrawn",
			"project_id", projectID, "remaining_budget", project.RemainingBudget)
	}

	member.TotalHours += hours
	batch.Check(index.ProjectMemberKey(projectID, userID), memberPair.Version)
	if err := putRecord(batch, index.ProjectMemberKey(projectID, userID), member); err != nil {
		return nil, err
	}

	return &Plan{Batch: batch, Entry: entry}, nil
}

// CompleteTimeEntry moves a pending entry to completed. The cost recorded
// at creation stands; completion never reprices an already-booked budget
// transaction.
func (c *Cascade) CompleteTimeEntry(ctx context.Context, id string) (*models.TimeEntry, error) {
	for attempt := 0; attempt < kv.MaxCommitAttempts; attempt++ {
		pair, ok, err := c.store.Get(ctx, index.TimeEntryKey(id))
		if err != nil {
			return nil, fmt.Errorf("failed to get time entry: %w", err)
		}
		if !ok {
			return nil, apperr.NotFound("time entry not found")
		}
		entry := &models.TimeEntry{}
		if err := kv.Decode(pair, entry); err != nil {
			return nil, err
		}
		if entry.Status == models.EntryCompleted {
			return nil, apperr.Precondition(apperr.CodeEntryCompleted, "time entry already completed")
		}

		entry.Status = models.EntryCompleted
		entry.CompletedAt = c.Now().Unix()
		batch := &kv.Batch{}
		batch.Check(index.TimeEntryKey(id), pair.Version)
		if err := putRecord(batch, index.TimeEntryKey(id), entry); err != nil {
			return nil, err
		}

		err = c.store.Commit(ctx, batch)
		if errors.Is(err, kv.ErrConflict) {
			metrics.CascadeRetryTotal.Inc()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to complete time entry: %w", err)
		}
		return entry, nil
	}
	return nil, apperr.Contention("complete time entry", kv.MaxCommitAttempts)
}

// PlanEarnings adds the additive earnings update for (user, project,
// period) to the batch, creating the record when none exists yet.
func (c *Cascade) PlanEarnings(ctx context.Context, batch *kv.Batch, userID, projectID, periodID string, regular, bonus, hours float64, now int64) error {
	pairs, err := c.store.Scan(ctx, index.EarningsUserPeriodPrefix(userID, periodID))
	if err != nil {
		return fmt.Errorf("failed to scan earnings: %w", err)
	}
	for _, pointer := range pairs {
		key := index.EarningsKey(string(pointer.Value))
		pair, ok, err := c.store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to get earnings: %w", err)
		}
		if !ok {
			continue
		}
		earnings := &models.Earnings{}
		if err := kv.Decode(pair, earnings); err != nil {
			return err
		}
		if earnings.ProjectID != projectID {
			continue
		}
		earnings.RegularAmount += regular
		earnings.BonusAmount += bonus
		earnings.Hours += hours
		earnings.UpdatedAt = now
		batch.Check(key, pair.Version)
		return putRecord(batch, key, earnings)
	}

	earnings := &models.Earnings{
		ID:            uuid.New().String(),
		UserID:        userID,
		ProjectID:     projectID,
		PayPeriodID:   periodID,
		RegularAmount: regular,
		BonusAmount:   bonus,
		Hours:         hours,
		UpdatedAt:     now,
	}
	if err := putRecord(batch, index.EarningsKey(earnings.ID), earnings); err != nil {
		return err
	}
	batch.Puts = append(batch.Puts, index.EarningsEntries(earnings)...)
	return nil
}

func (c *Cascade) PlanUserSummary(ctx context.Context, batch *kv.Batch, userID, periodStart string, hours, earnings, bonus float64, now int64) error {
	pairs, err := c.store.Scan(ctx, index.UserSummaryPeriodPrefix(userID, periodStart))
	if err != nil {
		return fmt.Errorf("failed to scan user summaries: %w", err)
	}
	if len(pairs) > 0 {
		pair := pairs[0]
		summary := &models.UserFinancialSummary{}
		if err := kv.Decode(pair, summary); err != nil {
			return err
		}
		summary.TotalHours += hours
		summary.TotalEarnings += earnings
		summary.BonusEarnings += bonus
		summary.UpdatedAt = now
		batch.Check(pair.Key, pair.Version)
		return putRecord(batch, pair.Key, summary)
	}

	// A summary's ID is its period start, so the primary key is the
	// (user, month) singleton and the absence check below is meaningful:
	// two plans built before either commits cannot both create one.
	summary := &models.UserFinancialSummary{
		ID:            periodStart,
		UserID:        userID,
		PeriodStart:   periodStart,
		TotalHours:    hours,
		TotalEarnings: earnings,
		BonusEarnings: bonus,
		UpdatedAt:     now,
	}
	key := index.UserSummaryKey(userID, periodStart, summary.ID)
	batch.CheckAbsent(key)
	return putRecord(batch, key, summary)
}

func (c *Cascade) PlanProjectSummary(ctx context.Context, batch *kv.Batch, projectID, periodStart string, hours, cost, bonus float64, now int64) error {
	pairs, err := c.store.Scan(ctx, index.ProjectSummaryPeriodPrefix(projectID, periodStart))
	if err != nil {
		return fmt.Errorf("failed to scan project summaries: %w", err)
	}
	if len(pairs) > 0 {
		pair := pairs[0]
		summary := &models.ProjectFinancialSummary{}
		if err := kv.Decode(pair, summary); err != nil {
			return err
		}
		summary.TotalHours += hours
		summary.TotalCost += cost
		summary.BonusPaid += bonus
		summary.UpdatedAt = now
		batch.Check(pair.Key, pair.Version)
		return putRecord(batch, pair.Key, summary)
	}

	// Same singleton scheme as the user summary: ID is the period start.
	summary := &models.ProjectFinancialSummary{
		ID:          periodStart,
		ProjectID:   projectID,
		PeriodStart: periodStart,
		TotalHours:  hours,
		TotalCost:   cost,
		BonusPaid:   bonus,
		UpdatedAt:   now,
	}
	key := index.ProjectSummaryKey(projectID, periodStart, summary.ID)
	batch.CheckAbsent(key)
	return putRecord(batch, key, summary)
}

func putRecord(batch *kv.Batch, key string, record any) error {
	value, err := kv.Encode(record)
	if err != nil {
		return err
	}
	batch.Put(key, value)
	return nil
}
