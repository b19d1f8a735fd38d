package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/tallyhour/tallyhour/internal/apperr"
	"github.com/tallyhour/tallyhour/internal/index"
	"github.com/tallyhour/tallyhour/internal/kv"
	"github.com/tallyhour/tallyhour/internal/models"
)

// GetTimeEntry retrieves a time entry by ID.
func (c *Cascade) GetTimeEntry(ctx context.Context, id string) (*models.TimeEntry, error) {
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
	return entry, nil
}

// GetTimeEntriesByUser lists a user's time entries with dates in
// [startDate, endDate], oldest first. Empty bounds are open.
func (c *Cascade) GetTimeEntriesByUser(ctx context.Context, userID, startDate, endDate string) ([]*models.TimeEntry, error) {
	prefix := index.TimeUserPrefix(userID)
	pointers, err := c.store.Scan(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan time index: %w", err)
	}

	var entries []*models.TimeEntry
	for _, pointer := range pointers {
		// Key layout: time_user/{userId}/{date}/{id}.
		date, _, ok := strings.Cut(strings.TrimPrefix(pointer.Key, prefix), "/")
		if !ok {
			continue
		}
		if startDate != "" && date < startDate {
			continue
		}
		if endDate != "" && date > endDate {
			break
		}
		entry, err := c.GetTimeEntry(ctx, string(pointer.Value))
		if err != nil {
			if apperr.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetTimeEntriesByProject lists a project's time entries, oldest first.
func (c *Cascade) GetTimeEntriesByProject(ctx context.Context, projectID string) ([]*models.TimeEntry, error) {
	pointers, err := c.store.Scan(ctx, index.TimeProjectPrefix(projectID))
	if err != nil {
		return nil, fmt.Errorf("failed to scan time index: %w", err)
	}
	var entries []*models.TimeEntry
	for _, pointer := range pointers {
		entry, err := c.GetTimeEntry(ctx, string(pointer.Value))
		if err != nil {
			if apperr.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetBudgetTransactions lists a project's budget transactions.
func (c *Cascade) GetBudgetTransactions(ctx context.Context, projectID string) ([]*models.BudgetTransaction, error) {
	pointers, err := c.store.Scan(ctx, index.BudgetTransactionProjectPrefix(projectID))
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction index: %w", err)
	}
	var txs []*models.BudgetTransaction
	for _, pointer := range pointers {
		pair, ok, err := c.store.Get(ctx, index.BudgetTransactionKey(string(pointer.Value)))
		if err != nil {
			return nil, fmt.Errorf("failed to get transaction: %w", err)
		}
		if !ok {
			continue
		}
		tx := &models.BudgetTransaction{}
		if err := kv.Decode(pair, tx); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// GetUserEarnings lists a user's earnings records across all periods.
func (c *Cascade) GetUserEarnings(ctx context.Context, userID string) ([]*models.Earnings, error) {
	return c.earningsByPrefix(ctx, index.EarningsUserPrefix(userID))
}

// GetProjectEarnings lists a project's earnings records across all
// periods.
func (c *Cascade) GetProjectEarnings(ctx context.Context, projectID string) ([]*models.Earnings, error) {
	return c.earningsByPrefix(ctx, index.EarningsProjectPrefix(projectID))
}

func (c *Cascade) earningsByPrefix(ctx context.Context, prefix string) ([]*models.Earnings, error) {
	pointers, err := c.store.Scan(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan earnings index: %w", err)
	}
	var records []*models.Earnings
	for _, pointer := range pointers {
		pair, ok, err := c.store.Get(ctx, index.EarningsKey(string(pointer.Value)))
		if err != nil {
			return nil, fmt.Errorf("failed to get earnings: %w", err)
		}
		if !ok {
			continue
		}
		earnings := &models.Earnings{}
		if err := kv.Decode(pair, earnings); err != nil {
			return nil, err
		}
		records = append(records, earnings)
	}
	return records, nil
}

// GetUserFinancialSummaries lists a user's monthly summaries, oldest
// first.
func (c *Cascade) GetUserFinancialSummaries(ctx context.Context, userID string) ([]*models.UserFinancialSummary, error) {
	pairs, err := c.store.Scan(ctx, index.UserSummaryPrefix(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to scan user summaries: %w", err)
	}
	summaries := make([]*models.UserFinancialSummary, 0, len(pairs))
	for _, pair := range pairs {
		summary := &models.UserFinancialSummary{}
		if err := kv.Decode(pair, summary); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetProjectFinancialSummaries lists a project's monthly summaries,
// oldest first.
func (c *Cascade) GetProjectFinancialSummaries(ctx context.Context, projectID string) ([]*models.ProjectFinancialSummary, error) {
	pairs, err := c.store.Scan(ctx, index.ProjectSummaryPrefix(projectID))
	if err != nil {
		return nil, fmt.Errorf("failed to scan project summaries: %w", err)
	}
	summaries := make([]*models.ProjectFinancialSummary, 0, len(pairs))
	for _, pair := range pairs {
		summary := &models.ProjectFinancialSummary{}
		if err := kv.Decode(pair, summary); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
