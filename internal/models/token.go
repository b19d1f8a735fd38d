package models

// AuthToken is a persisted session token record, keyed
// auth/{userId}/{token}. Written at login, removed at logout.
type AuthToken struct {
	UserID    string `json:"user_id"`
	Token     string `json:"token"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}
