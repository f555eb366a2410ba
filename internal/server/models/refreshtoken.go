package models

import "time"

// TokenStatus is the derived lifecycle state of a refresh token.
type TokenStatus string

const (
	TokenActive  TokenStatus = "active"
	TokenRevoked TokenStatus = "revoked"
	TokenExpired TokenStatus = "expired"
)

// RefreshToken is a single-use, revocable credential owned by one user.
// Value is the natural key; it is unique across all users.
type RefreshToken struct {
	Value     string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// NewRefreshToken builds an unrevoked token expiring lifetime after now.
func NewRefreshToken(value, userID string, now time.Time, lifetime time.Duration) *RefreshToken {
	now = now.UTC()
	return &RefreshToken{
		Value:     value,
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(lifetime),
	}
}

// Active reports whether the token may still be exchanged.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// Status classifies the token at now. Revocation takes precedence over expiry.
func (t *RefreshToken) Status(now time.Time) TokenStatus {
	switch {
	case t.Revoked:
		return TokenRevoked
	case !now.Before(t.ExpiresAt):
		return TokenExpired
	default:
		return TokenActive
	}
}

// Revoke marks the token as revoked. There is no way back.
func (t *RefreshToken) Revoke() {
	t.Revoked = true
}

// Clone returns an independent copy.
func (t *RefreshToken) Clone() *RefreshToken {
	c := *t
	return &c
}
