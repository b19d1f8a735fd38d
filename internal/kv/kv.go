// Package kv defines the versioned key-value store contract every service
// is built on.
//
// The contract is deliberately small: point reads, ordered prefix scans,
// and an atomic Commit that applies version checks, puts, and deletes
// all-or-nothing. Every cross-key invariant in the system (email
// uniqueness, the single-timer mutex, aggregate consistency) is enforced
// by carrying the relevant checks inside the commit that establishes it,
// never by a separate earlier read.
//
// Scans are best effort: a scan concurrent with writers may observe a mix
// of pre- and post-commit state, but never a partially written record.
package kv

import (
	"context"
	"errors"
)

// MaxCommitAttempts bounds optimistic-commit retry loops before they
// surface contention to the caller.
const MaxCommitAttempts = 5

// ErrConflict is returned by Commit when a version check fails. None of
// the batch's writes were applied.
var ErrConflict = errors.New("kv: version check failed")

// Pair is a stored key with its value and version. Versions start at 1
// and increase by one on every put of the key.
type Pair struct {
	Key     string
	Value   []byte
	Version int64
}

// Check is a commit precondition: the key must currently have the given
// version. Version 0 means the key must be absent.
type Check struct {
	Key     string
	Version int64
}

// Put is a write of a value to a key.
type Put struct {
	Key   string
	Value []byte
}

// Batch is a set of checks, puts, and deletes applied atomically.
type Batch struct {
	Checks  []Check
	Puts    []Put
	Deletes []string
}

// Check adds a version precondition to the batch.
func (b *Batch) Check(key string, version int64) {
	b.Checks = append(b.Checks, Check{Key: key, Version: version})
}

// CheckAbsent adds a precondition that the key does not exist.
func (b *Batch) CheckAbsent(key string) {
	b.Checks = append(b.Checks, Check{Key: key})
}

// Put adds a write to the batch.
func (b *Batch) Put(key string, value []byte) {
	b.Puts = append(b.Puts, Put{Key: key, Value: value})
}

// Delete adds a key removal to the batch.
func (b *Batch) Delete(key string) {
	b.Deletes = append(b.Deletes, key)
}

// Merge appends another batch's checks, puts, and deletes to this one.
func (b *Batch) Merge(other *Batch) {
	b.Checks = append(b.Checks, other.Checks...)
	b.Puts = append(b.Puts, other.Puts...)
	b.Deletes = append(b.Deletes, other.Deletes...)
}

// Store is the transactional key-value store contract.
type Store interface {
	// Get returns the pair stored at key. The boolean reports presence.
	Get(ctx context.Context, key string) (Pair, bool, error)

	// Scan returns all pairs whose key starts with prefix, in key order.
	Scan(ctx context.Context, prefix string) ([]Pair, error)

	// Commit applies the batch atomically. If any check fails it returns
	// an error wrapping ErrConflict and applies nothing.
	Commit(ctx context.Context, batch *Batch) error

	// Close releases any resources held by the store.
	Close() error
}
