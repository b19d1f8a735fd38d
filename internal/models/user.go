package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Email is the user's email address. Unique across all users and
	// immutable after creation; uniqueness is enforced by the
	// user_email/{email} index at creation time.
	Email string `json:"email"`

	// DisplayName is the human-readable name shown to other members.
	DisplayName string `json:"display_name"`

	// HourlyRate is the user's default billing rate. Project membership
	// snapshots this value at join time.
	HourlyRate float64 `json:"hourly_rate"`

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"password_hash"`

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64 `json:"created_at"`

	// UpdatedAt is the Unix timestamp of the last profile change.
	UpdatedAt int64 `json:"updated_at"`
}

// NewUser builds a user record with a fresh ID and timestamps.
func NewUser(email, displayName string, hourlyRate float64, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		HourlyRate:   hourlyRate,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
