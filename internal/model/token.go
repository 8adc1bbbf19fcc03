package model

import "time"

// RefreshToken is an opaque, single-use credential exchanged for a new
// access/refresh pair. Once Used or Revoked it can never be reactivated.
type RefreshToken struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt time.Time
	Revoked   bool
	Used      bool
	CreatedAt time.Time
}

// Active reports whether the token can still be redeemed at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && !t.Used && now.Before(t.ExpiresAt)
}
