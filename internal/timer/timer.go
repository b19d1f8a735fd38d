// Package timer enforces the single-active-timer-per-user state machine
// and converts stopped timers into ledger time entries.
package timer

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

// Timers runs the timer state machine on top of the ledger cascade.
type Timers struct {
	store   kv.Store
	cascade *ledger.Cascade

	// Now supplies the current time; overridable in tests.
	Now func() time.Time
}

// New creates the timer service.
func New(store kv.Store, cascade *ledger.Cascade) *Timers {
	return &Timers{store: store, cascade: cascade, Now: time.Now}
}

// StartTimer starts a timer for the user. The commit carries an absence
// check on the per-user singleton index key, so of any number of
// concurrent starts exactly one wins; a fast pre-read rejects the common
// case before committing.
func (t *Timers) StartTimer(ctx context.Context, userID, projectID, description string) (*models.ActiveTimer, error) {
	if userID == "" || projectID == "" {
		return nil, apperr.Validation("user and project are required")
	}
	if _, ok, err := t.store.Get(ctx, index.ProjectKey(projectID)); err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	} else if !ok {
		return nil, apperr.NotFound("project not found")
	}

	singleton := index.ActiveTimerUserKey(userID)
	if _, running, err := t.store.Get(ctx, singleton); err != nil {
		return nil, fmt.Errorf("failed to check running timer: %w", err)
	} else if running {
		return nil, apperr.Conflict(apperr.CodeTimerRunning, "a timer is already running")
	}

	timer := &models.ActiveTimer{
		ID:          uuid.New().String(),
		UserID:      userID,
		ProjectID:   projectID,
		Description: description,
		StartedAt:   t.Now().Unix(),
	}
	value, err := kv.Encode(timer)
	if err != nil {
		return nil, err
	}

	batch := &kv.Batch{}
	batch.CheckAbsent(singleton)
	batch.Put(index.ActiveTimerKey(timer.ID), value)
	batch.Puts = append(batch.Puts, index.ActiveTimerEntries(timer)...)

	if err := t.store.Commit(ctx, batch); err != nil {
		if errors.Is(err, kv.ErrConflict) {
			return nil, apperr.Conflict(apperr.CodeTimerRunningRace, "a timer started concurrently")
		}
		return nil, fmt.Errorf("failed to start timer: %w", err)
	}

	slog.Info("timer started", "timer_id", timer.ID, "user_id", userID, "project_id", projectID)
	return timer, nil
}

// StopTimer stops the user's running timer and books the elapsed time as
// a ledger time entry. Timer removal and the entire entry cascade commit
// as one batch: either both happen or neither, so a conflicting retry
// re-reads the timer and re-validates membership from scratch.
func (t *Timers) StopTimer(ctx context.Context, userID string) (*models.TimeEntry, error) {
	for attempt := 0; attempt < kv.MaxCommitAttempts; attempt++ {
		singletonPair, running, err := t.store.Get(ctx, index.ActiveTimerUserKey(userID))
		if err != nil {
			return nil, fmt.Errorf("failed to check running timer: %w", err)
		}
		if !running {
			return nil, apperr.New(apperr.KindNotFound, apperr.CodeNoActiveTimer, "no active timer")
		}

		timerKey := index.ActiveTimerKey(string(singletonPair.Value))
		timerPair, ok, err := t.store.Get(ctx, timerKey)
		if err != nil {
			return nil, fmt.Errorf("failed to get timer: %w", err)
		}
		if !ok {
			return nil, apperr.New(apperr.KindNotFound, apperr.CodeNoActiveTimer, "no active timer")
		}
		timer := &models.ActiveTimer{}
		if err := kv.Decode(timerPair, timer); err != nil {
			return nil, err
		}

		now := t.Now()
		hours := now.Sub(time.Unix(timer.StartedAt, 0)).Hours()
		if hours <= 0 {
			hours = minimumHours
		}
		date := now.UTC().Format(models.DateLayout)

		plan, err := t.cascade.PlanTimeEntry(ctx, timer.ProjectID, timer.UserID, hours, timer.Description, date)
		if err != nil {
			return nil, err
		}

		// Merge timer cleanup into the entry commit.
		plan.Batch.Check(timerKey, timerPair.Version)
		plan.Batch.Check(index.ActiveTimerUserKey(userID), singletonPair.Version)
		plan.Batch.Delete(timerKey)
		for _, key := range index.ActiveTimerIndexKeys(timer) {
			plan.Batch.Delete(key)
		}

		err = t.store.Commit(ctx, plan.Batch)
		if errors.Is(err, kv.ErrConflict) {
			metrics.CascadeRetryTotal.Inc()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stop timer: %w", err)
		}

		slog.Info("timer stopped",
			"timer_id", timer.ID,
			"user_id", userID,
			"hours", hours,
			"entry_id", plan.Entry.ID,
		)
		return plan.Entry, nil
	}
	return nil, apperr.Contention("stop timer", kv.MaxCommitAttempts)
}

// minimumHours keeps a stop in the same clock second as its start from
// producing a zero-hour entry the cascade would reject.
const minimumHours = 1.0 / 3600

// GetActiveTimerByUser returns the user's running timer, or a not-found
// error when none is running.
func (t *Timers) GetActiveTimerByUser(ctx context.Context, userID string) (*models.ActiveTimer, error) {
	pointer, running, err := t.store.Get(ctx, index.ActiveTimerUserKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to check running timer: %w", err)
	}
	if !running {
		return nil, apperr.New(apperr.KindNotFound, apperr.CodeNoActiveTimer, "no active timer")
	}
	return t.getTimer(ctx, string(pointer.Value))
}

// GetActiveTimersByProject lists all timers currently running against a
// project.
func (t *Timers) GetActiveTimersByProject(ctx context.Context, projectID string) ([]*models.ActiveTimer, error) {
	pointers, err := t.store.Scan(ctx, index.ActiveTimerProjectPrefix(projectID))
	if err != nil {
		return nil, fmt.Errorf("failed to scan project timers: %w", err)
	}
	var timers []*models.ActiveTimer
	for _, pointer := range pointers {
		timer, err := t.getTimer(ctx, string(pointer.Value))
		if err != nil {
			if apperr.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		timers = append(timers, timer)
	}
	return timers, nil
}

func (t *Timers) getTimer(ctx context.Context, id string) (*models.ActiveTimer, error) {
	pair, ok, err := t.store.Get(ctx, index.ActiveTimerKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get timer: %w", err)
	}
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, apperr.CodeNoActiveTimer, "no active timer")
	}
	timer := &models.ActiveTimer{}
	if err := kv.Decode(pair, timer); err != nil {
		return nil, err
	}
	return timer, nil
}
