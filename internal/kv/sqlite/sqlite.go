// Package sqlite provides a SQLite-backed implementation of the kv.Store
// contract.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/tallyhour/tallyhour/internal/kv"
	"github.com/tallyhour/tallyhour/internal/metrics"
)

// Ensure Store implements kv.Store
var _ kv.Store = (*Store)(nil)

// Store implements kv.Store on a single SQLite table. Every key carries a
// version that increases by one on each put; Commit runs inside one
// immediate transaction so checks and writes are atomic against
// concurrent committers.
type Store struct {
	db *sql.DB
}

// New creates a Store backed by the database at dbPath. It creates the
// parent directories and runs migrations automatically.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// busy_timeout is set through the DSN so it applies to every pooled
	// connection: writers queue instead of failing on a locked database.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the pair stored at key.
func (s *Store) Get(ctx context.Context, key string) (kv.Pair, bool, error) {
	pair := kv.Pair{Key: key}
	err := s.db.QueryRowContext(ctx,
		"SELECT v, version FROM kv WHERE k = ?", key,
	).Scan(&pair.Value, &pair.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return kv.Pair{}, false, nil
	}
	if err != nil {
		return kv.Pair{}, false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return pair, true, nil
}

// Scan returns all pairs under prefix in key order.
func (s *Store) Scan(ctx context.Context, prefix string) ([]kv.Pair, error) {
	query := "SELECT k, v, version FROM kv ORDER BY k"
	args := []any{}
	if prefix != "" {
		if end, ok := prefixEnd(prefix); ok {
			query = "SELECT k, v, version FROM kv WHERE k >= ? AND k < ? ORDER BY k"
			args = []any{prefix, end}
		} else {
			query = "SELECT k, v, version FROM kv WHERE k >= ? ORDER BY k"
			args = []any{prefix}
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %q: %w", prefix, err)
	}
	defer rows.Close()

	var pairs []kv.Pair
	for rows.Next() {
		var p kv.Pair
		if err := rows.Scan(&p.Key, &p.Value, &p.Version); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scan %q: %w", prefix, err)
	}
	return pairs, nil
}

// Commit applies the batch atomically. A failed version check returns an
// error wrapping kv.ErrConflict and leaves the store untouched.
func (s *Store) Commit(ctx context.Context, batch *kv.Batch) error {
	err := s.commit(ctx, batch)
	switch {
	case err == nil:
		metrics.CommitTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, kv.ErrConflict):
		metrics.CommitTotal.WithLabelValues("conflict").Inc()
	default:
		metrics.CommitTotal.WithLabelValues("error").Inc()
	}
	return err
}

func (s *Store) commit(ctx context.Context, batch *kv.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Bumping the sequence row takes the write lock before any check
	// runs, so checks observe the state the writes will apply against.
	if _, err := tx.ExecContext(ctx, "UPDATE kv_meta SET seq = seq + 1 WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}

	for _, check := range batch.Checks {
		var version int64
		err := tx.QueryRowContext(ctx,
			"SELECT version FROM kv WHERE k = ?", check.Key,
		).Scan(&version)
		if errors.Is(err, sql.ErrNoRows) {
			version = 0
		} else if err != nil {
			return fmt.Errorf("failed to check %q: %w", check.Key, err)
		}
		if version != check.Version {
			return fmt.Errorf("%w: key %q has version %d, want %d",
				kv.ErrConflict, check.Key, version, check.Version)
		}
	}

	for _, put := range batch.Puts {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv (k, v, version) VALUES (?, ?, 1)
			 ON CONFLICT(k) DO UPDATE SET v = excluded.v, version = kv.version + 1`,
			put.Key, put.Value,
		)
		if err != nil {
			return fmt.Errorf("failed to put %q: %w", put.Key, err)
		}
	}

	for _, key := range batch.Deletes {
		if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE k = ?", key); err != nil {
			return fmt.Errorf("failed to delete %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// prefixEnd returns the smallest key greater than every key with the
// given prefix. The second return is false when no such bound exists
// (prefix is all 0xff bytes).
func prefixEnd(prefix string) (string, bool) {
	end := []byte(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return string(end[:i+1]), true
		}
	}
	return "", false
}
