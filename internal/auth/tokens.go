package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/tallyhour/tallyhour/internal/index"
	"github.com/tallyhour/tallyhour/internal/kv"
	"github.com/tallyhour/tallyhour/internal/models"
)

// TokenStore persists issued session tokens under auth/{userId}/{token},
// so sessions survive restarts and logout can revoke a token server-side.
type TokenStore struct {
	store kv.Store
}

// NewTokenStore creates a token store.
func NewTokenStore(store kv.Store) *TokenStore {
	return &TokenStore{store: store}
}

// Save records an issued token.
func (s *TokenStore) Save(ctx context.Context, userID, token string, ttl time.Duration) error {
	now := time.Now()
	record := &models.AuthToken{
		UserID:    userID,
		Token:     token,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	value, err := kv.Encode(record)
	if err != nil {
		return err
	}
	batch := &kv.Batch{}
	batch.Put(index.AuthTokenKey(userID, token), value)
	if err := s.store.Commit(ctx, batch); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Revoke removes a stored token.
func (s *TokenStore) Revoke(ctx context.Context, userID, token string) error {
	batch := &kv.Batch{}
	batch.Delete(index.AuthTokenKey(userID, token))
	if err := s.store.Commit(ctx, batch); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Active reports whether the token is on record and unexpired.
func (s *TokenStore) Active(ctx context.Context, userID, token string) (bool, error) {
	pair, ok, err := s.store.Get(ctx, index.AuthTokenKey(userID, token))
	if err != nil {
		return false, fmt.Errorf("failed to get token: %w", err)
	}
	if !ok {
		return false, nil
	}
	record := &models.AuthToken{}
	if err := kv.Decode(pair, record); err != nil {
		return false, err
	}
	return time.Now().Unix() <= record.ExpiresAt, nil
}
