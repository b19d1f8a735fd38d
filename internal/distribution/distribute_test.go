package distribution

import (
	"context"
	"math"
	"path/filepath"
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
	store       kv.Store
	cascade     *ledger.Cascade
	membership  *registry.Membership
	distributor *Distributor
	alice       *models.User
	bob         *models.User
	project     *models.Project
}

// newFixture builds a sharing-enabled project (budget 10000, 10%) owned
// by alice (rate 100) with bob (rate 100) as a member. The cascade and
// distributor clocks are pinned so watermark comparisons are exact.
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

	alice, err := identity.CreateUser(ctx, "alice@example.com", "Alice", 100, "hash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	bob, err := identity.CreateUser(ctx, "bob@example.com", "Bob", 100, "hash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	project, err := membership.CreateProject(ctx, alice.ID, "Website", 10000, true, 10)
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if _, err := membership.AddProjectMember(ctx, project.ID, bob.ID, models.RoleMember, 100); err != nil {
		t.Fatalf("AddProjectMember failed: %v", err)
	}

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cascade.Now = func() time.Time { return base }
	distributor := New(store, cascade)
	distributor.Now = func() time.Time { return base.Add(time.Hour) }

	return &fixture{
		store:       store,
		cascade:     cascade,
		membership:  membership,
		distributor: distributor,
		alice:       alice,
		bob:         bob,
		project:     project,
	}
}

// bookCompleted records and completes a time entry.
func (f *fixture) bookCompleted(t *testing.T, userID string, hours float64) {
	t.Helper()
	ctx := context.Background()
	entry, err := f.cascade.CreateTimeEntry(ctx, f.project.ID, userID, hours, "work", "2026-03-10")
	if err != nil {
		t.Fatalf("CreateTimeEntry failed: %v", err)
	}
	if _, err := f.cascade.CompleteTimeEntry(ctx, entry.ID); err != nil {
		t.Fatalf("CompleteTimeEntry failed: %v", err)
	}
}

func TestDistributeProjectProfits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bookCompleted(t, f.alice.ID, 6)
	f.bookCompleted(t, f.bob.ID, 4)

	result, err := f.distributor.DistributeProjectProfits(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("DistributeProjectProfits failed: %v", err)
	}

	t.Run("pool is the configured share of the budget", func(t *testing.T) {
		if result.Pool != 1000 {
			t.Errorf("Pool = %v, want 1000", result.Pool)
		}
	})

	t.Run("shares are proportional to completed hours", func(t *testing.T) {
		if len(result.Shares) != 2 {
			t.Fatalf("Got %d shares, want 2", len(result.Shares))
		}
		byUser := make(map[string]*models.ProfitShare)
		for _, share := range result.Shares {
			byUser[share.UserID] = share
		}
		if byUser[f.alice.ID].Amount != 600 {
			t.Errorf("Alice share = %v, want 600", byUser[f.alice.ID].Amount)
		}
		if byUser[f.bob.ID].Amount != 400 {
			t.Errorf("Bob share = %v, want 400", byUser[f.bob.ID].Amount)
		}
		var sum float64
		for _, share := range result.Shares {
			sum += share.Amount
		}
		if sum != result.Pool {
			t.Errorf("Share sum = %v, want pool %v", sum, result.Pool)
		}
	})

	t.Run("project aggregates move with the pool", func(t *testing.T) {
		project, err := f.membership.GetProject(ctx, f.project.ID)
		if err != nil {
			t.Fatalf("GetProject failed: %v", err)
		}
		// 10 hours at rate 100 already debited 1000.
		if math.Abs(project.RemainingBudget-8000) > 1e-6 {
			t.Errorf("RemainingBudget = %v, want 8000", project.RemainingBudget)
		}
		if project.BonusPool != 1000 {
			t.Errorf("BonusPool = %v, want 1000", project.BonusPool)
		}
		if project.DistributedThrough == 0 {
			t.Error("Expected watermark to advance")
		}
	})

	t.Run("bonus lands in earnings and budget transactions", func(t *testing.T) {
		earnings, err := f.cascade.GetUserEarnings(ctx, f.alice.ID)
		if err != nil {
			t.Fatalf("GetUserEarnings failed: %v", err)
		}
		if len(earnings) != 1 {
			t.Fatalf("Got %d earnings records, want 1", len(earnings))
		}
		if earnings[0].BonusAmount != 600 {
			t.Errorf("BonusAmount = %v, want 600", earnings[0].BonusAmount)
		}
		if earnings[0].RegularAmount != 600 {
			t.Errorf("RegularAmount = %v, want untouched 600", earnings[0].RegularAmount)
		}

		txs, err := f.cascade.GetBudgetTransactions(ctx, f.project.ID)
		if err != nil {
			t.Fatalf("GetBudgetTransactions failed: %v", err)
		}
		var bonusTotal float64
		for _, tx := range txs {
			if tx.Type == models.TransactionBonus {
				bonusTotal += tx.Amount
			}
		}
		if bonusTotal != -1000 {
			t.Errorf("Bonus transaction total = %v, want -1000", bonusTotal)
		}
	})

	t.Run("second run over an unchanged ledger pays nothing", func(t *testing.T) {
		_, err := f.distributor.DistributeProjectProfits(ctx, f.project.ID)
		if apperr.CodeOf(err) != apperr.CodeNoContribution {
			t.Fatalf("Error code = %q, want %q", apperr.CodeOf(err), apperr.CodeNoContribution)
		}
	})

	t.Run("new completed work after the watermark distributes again", func(t *testing.T) {
		f.cascade.Now = func() time.Time { return time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC) }
		f.bookCompleted(t, f.bob.ID, 5)

		result, err := f.distributor.DistributeProjectProfits(ctx, f.project.ID)
		if err != nil {
			t.Fatalf("DistributeProjectProfits failed: %v", err)
		}
		if len(result.Shares) != 1 || result.Shares[0].UserID != f.bob.ID {
			t.Fatalf("Shares = %+v, want only Bob's new contribution", result.Shares)
		}
		if result.Shares[0].Amount != 1000 {
			t.Errorf("Bob share = %v, want the whole new pool", result.Shares[0].Amount)
		}
	})
}

// An entry still pending during one run must be paid by the run after it
// completes, even though it was created before the first run's watermark.
func TestDistributePaysLateCompletions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	aliceEntry, err := f.cascade.CreateTimeEntry(ctx, f.project.ID, f.alice.ID, 6, "pending work", "2026-03-10")
	if err != nil {
		t.Fatalf("CreateTimeEntry failed: %v", err)
	}
	f.bookCompleted(t, f.bob.ID, 4)

	result, err := f.distributor.DistributeProjectProfits(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("DistributeProjectProfits failed: %v", err)
	}
	if len(result.Shares) != 1 || result.Shares[0].UserID != f.bob.ID {
		t.Fatalf("Shares = %+v, want only Bob while Alice is still pending", result.Shares)
	}

	// Alice's entry completes a day after the first run.
	f.cascade.Now = func() time.Time { return time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC) }
	if _, err := f.cascade.CompleteTimeEntry(ctx, aliceEntry.ID); err != nil {
		t.Fatalf("CompleteTimeEntry failed: %v", err)
	}

	result, err = f.distributor.DistributeProjectProfits(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("DistributeProjectProfits after late completion = %v, want a payout", err)
	}
	if len(result.Shares) != 1 || result.Shares[0].UserID != f.alice.ID {
		t.Fatalf("Shares = %+v, want only Alice's late completion", result.Shares)
	}
	if result.Shares[0].Amount != 1000 {
		t.Errorf("Alice share = %v, want the whole pool", result.Shares[0].Amount)
	}
}

func TestDistributePreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("sharing disabled", func(t *testing.T) {
		f := newFixture(t)
		plain, err := f.membership.CreateProject(ctx, f.alice.ID, "No Sharing", 5000, false, 0)
		if err != nil {
			t.Fatalf("CreateProject failed: %v", err)
		}
		_, err = f.distributor.DistributeProjectProfits(ctx, plain.ID)
		if apperr.CodeOf(err) != apperr.CodeSharingDisabled {
			t.Fatalf("Error code = %q, want %q", apperr.CodeOf(err), apperr.CodeSharingDisabled)
		}
	})

	t.Run("pending entries do not count", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.cascade.CreateTimeEntry(ctx, f.project.ID, f.alice.ID, 3, "pending", "2026-03-10"); err != nil {
			t.Fatalf("CreateTimeEntry failed: %v", err)
		}

		_, err := f.distributor.DistributeProjectProfits(ctx, f.project.ID)
		if apperr.CodeOf(err) != apperr.CodeNoContribution {
			t.Fatalf("Error code = %q, want %q", apperr.CodeOf(err), apperr.CodeNoContribution)
		}

		// The rejected run must not have touched the project.
		project, err := f.membership.GetProject(ctx, f.project.ID)
		if err != nil {
			t.Fatalf("GetProject failed: %v", err)
		}
		if project.BonusPool != 0 || project.DistributedThrough != 0 {
			t.Errorf("Rejected run mutated project: %+v", project)
		}
	})

	t.Run("unknown project", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.distributor.DistributeProjectProfits(ctx, "missing")
		if !apperr.IsNotFound(err) {
			t.Fatalf("Error = %v, want not found", err)
		}
	})
}
