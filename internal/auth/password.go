package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/tallyhour/tallyhour/internal/models"
	"github.com/tallyhour/tallyhour/internal/registry"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrMissingToken       = errors.New("authorization token required")
)

// PasswordAuthenticator implements password-based authentication using
// bcrypt, backed by the identity registry.
type PasswordAuthenticator struct {
	identity *registry.Identity
}

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(identity *registry.Identity) *PasswordAuthenticator {
	return &PasswordAuthenticator{identity: identity}
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// Register creates a new user account with a hashed password. Email
// uniqueness is the registry's concern; its conflict errors pass through
// untouched.
func (a *PasswordAuthenticator) Register(ctx context.Context, email, displayName string, hourlyRate float64, credential string) (*models.User, error) {
	if err := a.ValidateCredential(credential); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return a.identity.CreateUser(ctx, email, displayName, hourlyRate, string(hash))
}

// Authenticate verifies the email and password, returning the user if
// valid.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, credential string) (*models.User, error) {
	user, err := a.identity.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
