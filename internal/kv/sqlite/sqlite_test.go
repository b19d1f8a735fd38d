package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tallyhour/tallyhour/internal/kv"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("Get on absent key reports not found", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if ok {
			t.Error("Expected absent key")
		}
	})

	t.Run("Put then Get returns value at version 1", func(t *testing.T) {
		batch := &kv.Batch{}
		batch.Put("a/1", []byte("one"))
		if err := store.Commit(ctx, batch); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		pair, ok, err := store.Get(ctx, "a/1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !ok {
			t.Fatal("Expected key to exist")
		}
		if string(pair.Value) != "one" {
			t.Errorf("Value = %q, want %q", pair.Value, "one")
		}
		if pair.Version != 1 {
			t.Errorf("Version = %d, want 1", pair.Version)
		}
	})

	t.Run("Overwrite bumps version", func(t *testing.T) {
		batch := &kv.Batch{}
		batch.Put("a/1", []byte("two"))
		if err := store.Commit(ctx, batch); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		pair, _, err := store.Get(ctx, "a/1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(pair.Value) != "two" {
			t.Errorf("Value = %q, want %q", pair.Value, "two")
		}
		if pair.Version != 2 {
			t.Errorf("Version = %d, want 2", pair.Version)
		}
	})

	t.Run("Scan returns prefix matches in key order", func(t *testing.T) {
		batch := &kv.Batch{}
		batch.Put("scan/c", []byte("3"))
		batch.Put("scan/a", []byte("1"))
		batch.Put("scan/b", []byte("2"))
		batch.Put("scab/x", []byte("other"))
		if err := store.Commit(ctx, batch); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		pairs, err := store.Scan(ctx, "scan/")
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(pairs) != 3 {
			t.Fatalf("Got %d pairs, want 3", len(pairs))
		}
		want := []string{"scan/a", "scan/b", "scan/c"}
		for i, pair := range pairs {
			if pair.Key != want[i] {
				t.Errorf("pairs[%d].Key = %q, want %q", i, pair.Key, want[i])
			}
		}
	})

	t.Run("Delete removes key", func(t *testing.T) {
		batch := &kv.Batch{}
		batch.Put("gone", []byte("x"))
		if err := store.Commit(ctx, batch); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		batch = &kv.Batch{}
		batch.Delete("gone")
		if err := store.Commit(ctx, batch); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		_, ok, err := store.Get(ctx, "gone")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if ok {
			t.Error("Expected key to be deleted")
		}
	})
}

func TestCommitChecks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := &kv.Batch{}
	seed.Put("guarded", []byte("v1"))
	if err := store.Commit(ctx, seed); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	t.Run("Matching version check passes", func(t *testing.T) {
		batch := &kv.Batch{}
		batch.Check("guarded", 1)
		batch.Put("guarded", []byte("v2"))
		if err := store.Commit(ctx, batch); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
	})

	t.Run("Stale version check fails and applies nothing", func(t *testing.T) {
		batch := &kv.Batch{}
		batch.Check("guarded", 1) // now at version 2
		batch.Put("guarded", []byte("stale"))
		batch.Put("side-effect", []byte("x"))

		err := store.Commit(ctx, batch)
		if !errors.Is(err, kv.ErrConflict) {
			t.Fatalf("Commit error = %v, want ErrConflict", err)
		}

		pair, _, err := store.Get(ctx, "guarded")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(pair.Value) != "v2" {
			t.Errorf("Value = %q, want untouched %q", pair.Value, "v2")
		}
		if _, ok, _ := store.Get(ctx, "side-effect"); ok {
			t.Error("Failed commit must not apply any write")
		}
	})

	t.Run("Absence check fails on present key", func(t *testing.T) {
		batch := &kv.Batch{}
		batch.CheckAbsent("guarded")
		batch.Put("other", []byte("x"))
		if err := store.Commit(ctx, batch); !errors.Is(err, kv.ErrConflict) {
			t.Fatalf("Commit error = %v, want ErrConflict", err)
		}
	})

	t.Run("Absence check passes on absent key", func(t *testing.T) {
		batch := &kv.Batch{}
		batch.CheckAbsent("fresh")
		batch.Put("fresh", []byte("x"))
		if err := store.Commit(ctx, batch); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
	})
}

// Concurrent commits carrying the same absence check: exactly one wins.
func TestCommitConcurrentSingleWinner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			batch := &kv.Batch{}
			batch.CheckAbsent("slot")
			batch.Put("slot", []byte{byte('a' + i)})
			errs[i] = store.Commit(ctx, batch)
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, kv.ErrConflict):
			conflicts++
		default:
			t.Fatalf("Unexpected commit error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("Got %d winners, want exactly 1", wins)
	}
	if conflicts != writers-1 {
		t.Errorf("Got %d conflicts, want %d", conflicts, writers-1)
	}

	pair, ok, err := store.Get(ctx, "slot")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if pair.Version != 1 {
		t.Errorf("Version = %d, want 1", pair.Version)
	}
}

func TestPrefixEnd(t *testing.T) {
	tests := []struct {
		prefix  string
		end     string
		bounded bool
	}{
		{"user/", "user0", true},
		{"a", "b", true},
		{"\xff", "", false},
		{"a\xff", "b", true},
	}
	for _, tt := range tests {
		end, bounded := prefixEnd(tt.prefix)
		if end != tt.end || bounded != tt.bounded {
			t.Errorf("prefixEnd(%q) = (%q, %v), want (%q, %v)",
				tt.prefix, end, bounded, tt.end, tt.bounded)
		}
	}
}
