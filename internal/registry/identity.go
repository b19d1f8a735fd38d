// Package registry implements the identity and membership registries:
// users with email uniqueness, projects, per-project members, and
// invitations.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tallyhour/tallyhour/internal/apperr"
	"github.com/tallyhour/tallyhour/internal/index"
	"github.com/tallyhour/tallyhour/internal/kv"
	"github.com/tallyhour/tallyhour/internal/models"
)

// Identity manages user records and the email-uniqueness index.
type Identity struct {
	store kv.Store
}

// NewIdentity creates an identity registry on the given store.
func NewIdentity(store kv.Store) *Identity {
	return &Identity{store: store}
}

// CreateUser registers a new user. The email must not be in use: a fast
// pre-read rejects known duplicates, and the commit itself carries an
// absence check on the email index so a concurrent insert between the
// read and the commit surfaces as a distinct race conflict.
func (r *Identity) CreateUser(ctx context.Context, email, displayName string, hourlyRate float64, passwordHash string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("a valid email is required")
	}
	if displayName == "" {
		return nil, apperr.Validation("display name is required")
	}
	if hourlyRate < 0 {
		return nil, apperr.Validation("hourly rate must not be negative")
	}

	// Fast path: reject an email we can already see.
	_, taken, err := r.store.Get(ctx, index.UserEmailKey(email))
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, apperr.Conflict(apperr.CodeDuplicateEmail, "email already registered")
	}

	user := models.NewUser(email, displayName, hourlyRate, passwordHash)
	value, err := kv.Encode(user)
	if err != nil {
		return nil, err
	}

	batch := &kv.Batch{}
	batch.CheckAbsent(index.UserEmailKey(email))
	batch.Put(index.UserKey(user.ID), value)
	batch.Puts = append(batch.Puts, index.UserEntries(user)...)

	if err := r.store.Commit(ctx, batch); err != nil {
		if errors.Is(err, kv.ErrConflict) {
			// A concurrent writer won the email between our read and
			// this commit.
			return nil, apperr.Conflict(apperr.CodeDuplicateEmailRace, "email registered concurrently")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (r *Identity) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	pair, ok, err := r.store.Get(ctx, index.UserKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	user := &models.User{}
	if err := kv.Decode(pair, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user through the email index.
func (r *Identity) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	pair, ok, err := r.store.Get(ctx, index.UserEmailKey(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get email index: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return r.GetUserByID(ctx, string(pair.Value))
}
