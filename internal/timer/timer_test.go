package timer

import (
	"context"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tallyhour/tallyhour/internal/apperr"
	"github.com/tallyhour/tallyhour/internal/kv"
	"github.com/tallyhour/tallyhour/internal/kv/sqlite"
	"github.com/tallyhour/tallyhour/internal/ledger"
	"github.com/tallyhour/tallyhour/internal/models"
	"github.com/tallyhour/tallyhour/internal/registry"
)

type fixture struct {
	store      kv.Store
	timers     *Timers
	cascade    *ledger.Cascade
	membership *registry.Membership
	user       *models.User
	project    *models.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	identity := registry.NewIdentity(store)
	membership := registry.NewMembership(store)
	cascade := ledger.NewCascade(store)

	user, err := identity.CreateUser(ctx, "alice@example.com", "Alice", 100, "hash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	project, err := membership.CreateProject(ctx, user.ID, "Website", 10000, false, 0)
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	return &fixture{
		store:      store,
		timers:     New(store, cascade),
		cascade:    cascade,
		membership: membership,
		user:       user,
		project:    project,
	}
}

func TestStartTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("starts and is visible by user and project", func(t *testing.T) {
		started, err := f.timers.StartTimer(ctx, f.user.ID, f.project.ID, "coding")
		if err != nil {
			t.Fatalf("StartTimer failed: %v", err)
		}

		byUser, err := f.timers.GetActiveTimerByUser(ctx, f.user.ID)
		if err != nil {
			t.Fatalf("GetActiveTimerByUser failed: %v", err)
		}
		if byUser.ID != started.ID {
			t.Errorf("Got timer %q, want %q", byUser.ID, started.ID)
		}

		byProject, err := f.timers.GetActiveTimersByProject(ctx, f.project.ID)
		if err != nil {
			t.Fatalf("GetActiveTimersByProject failed: %v", err)
		}
		if len(byProject) != 1 || byProject[0].ID != started.ID {
			t.Errorf("Project index returned %d timers", len(byProject))
		}
	})

	t.Run("second start is rejected", func(t *testing.T) {
		_, err := f.timers.StartTimer(ctx, f.user.ID, f.project.ID, "more coding")
		if apperr.CodeOf(err) != apperr.CodeTimerRunning {
			t.Fatalf("Error code = %q, want %q", apperr.CodeOf(err), apperr.CodeTimerRunning)
		}
	})

	t.Run("unknown project is rejected", func(t *testing.T) {
		_, err := f.timers.StartTimer(ctx, f.user.ID, "missing", "x")
		if !apperr.IsNotFound(err) {
			t.Fatalf("Error = %v, want not found", err)
		}
	})
}

// Of any number of concurrent starts, exactly one wins the singleton slot.
func TestStartTimerConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const starters = 6
	var wg sync.WaitGroup
	errs := make([]error, starters)
	for i := 0; i < starters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.timers.StartTimer(ctx, f.user.ID, f.project.ID, "race")
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		switch apperr.CodeOf(err) {
		case "":
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			wins++
		case apperr.CodeTimerRunning, apperr.CodeTimerRunningRace:
		default:
			t.Fatalf("Unexpected error code %q (%v)", apperr.CodeOf(err), err)
		}
	}
	if wins != 1 {
		t.Errorf("Got %d winners, want exactly 1", wins)
	}

	timers, err := f.timers.GetActiveTimersByProject(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("GetActiveTimersByProject failed: %v", err)
	}
	if len(timers) != 1 {
		t.Errorf("Got %d running timers, want 1", len(timers))
	}
}

func TestStopTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("stop books elapsed time as an entry", func(t *testing.T) {
		start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		f.timers.Now = func() time.Time { return start }
		if _, err := f.timers.StartTimer(ctx, f.user.ID, f.project.ID, "billable work"); err != nil {
			t.Fatalf("StartTimer failed: %v", err)
		}

		f.timers.Now = func() time.Time { return start.Add(90 * time.Minute) }
		entry, err := f.timers.StopTimer(ctx, f.user.ID)
		if err != nil {
			t.Fatalf("StopTimer failed: %v", err)
		}

		if math.Abs(entry.Hours-1.5) > 1e-9 {
			t.Errorf("Hours = %v, want 1.5", entry.Hours)
		}
		if math.Abs(entry.CostImpact-150) > 1e-6 {
			t.Errorf("CostImpact = %v, want 150", entry.CostImpact)
		}
		if entry.Description != "billable work" {
			t.Errorf("Description = %q, want carried over", entry.Description)
		}
		if entry.Date != "2026-03-10" {
			t.Errorf("Date = %q, want 2026-03-10", entry.Date)
		}

		project, err := f.membership.GetProject(ctx, f.project.ID)
		if err != nil {
			t.Fatalf("GetProject failed: %v", err)
		}
		if math.Abs(project.RemainingBudget-9850) > 1e-6 {
			t.Errorf("RemainingBudget = %v, want 9850", project.RemainingBudget)
		}
	})

	t.Run("stop clears the singleton so a new start succeeds", func(t *testing.T) {
		if _, err := f.timers.GetActiveTimerByUser(ctx, f.user.ID); apperr.CodeOf(err) != apperr.CodeNoActiveTimer {
			t.Fatalf("Expected no running timer after stop, got %v", err)
		}
		if _, err := f.timers.StartTimer(ctx, f.user.ID, f.project.ID, "next task"); err != nil {
			t.Fatalf("StartTimer after stop failed: %v", err)
		}
		if _, err := f.timers.StopTimer(ctx, f.user.ID); err != nil {
			t.Fatalf("StopTimer failed: %v", err)
		}
	})

	t.Run("stop without a running timer fails", func(t *testing.T) {
		_, err := f.timers.StopTimer(ctx, f.user.ID)
		if apperr.CodeOf(err) != apperr.CodeNoActiveTimer {
			t.Fatalf("Error code = %q, want %q", apperr.CodeOf(err), apperr.CodeNoActiveTimer)
		}
	})

	t.Run("instant stop books the minimum duration", func(t *testing.T) {
		now := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
		f.timers.Now = func() time.Time { return now }
		if _, err := f.timers.StartTimer(ctx, f.user.ID, f.project.ID, "blink"); err != nil {
			t.Fatalf("StartTimer failed: %v", err)
		}
		entry, err := f.timers.StopTimer(ctx, f.user.ID)
		if err != nil {
			t.Fatalf("StopTimer failed: %v", err)
		}
		if entry.Hours <= 0 {
			t.Errorf("Hours = %v, want positive minimum", entry.Hours)
		}
	})
}

// A non-member's stop fails at the cascade and leaves the timer running.
func TestStopTimerNonMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	identity := registry.NewIdentity(f.store)
	outsider, err := identity.CreateUser(ctx, "outsider@example.com", "Outsider", 50, "hash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := f.timers.StartTimer(ctx, outsider.ID, f.project.ID, "unauthorized"); err != nil {
		t.Fatalf("StartTimer failed: %v", err)
	}

	_, err = f.timers.StopTimer(ctx, outsider.ID)
	if apperr.CodeOf(err) != apperr.CodeNotAMember {
		t.Fatalf("Error code = %q, want %q", apperr.CodeOf(err), apperr.CodeNotAMember)
	}

	// The failed stop must not have consumed the timer.
	if _, err := f.timers.GetActiveTimerByUser(ctx, outsider.ID); err != nil {
		t.Errorf("Timer disappeared after failed stop: %v", err)
	}
}
