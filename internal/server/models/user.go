package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// User is the identity aggregate. It exclusively owns its refresh tokens;
// every mutation of that collection goes through the methods below so that
// stores can persist exactly the pending changes in one unit of work.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time

	RefreshTokens []*RefreshToken

	added   []*RefreshToken
	revoked []string
}

// NormalizeEmail trims and lower-cases an email so that lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindRefreshToken returns the token with exactly the given value, or nil.
func (u *User) FindRefreshToken(value string) *RefreshToken {
	for _, t := range u.RefreshTokens {
		if t.Value == value {
			return t
		}
	}
	return nil
}

// AddRefreshToken appends a freshly issued token and records it as pending.
func (u *User) AddRefreshToken(t *RefreshToken) {
	u.RefreshTokens = append(u.RefreshTokens, t)
	u.added = append(u.added, t)
}

// RevokeRefreshToken retires an active token. It fails with
// common.ErrTokenNotActive when the token is unknown, already revoked or
// expired at now.
func (u *User) RevokeRefreshToken(value string, now time.Time) error {
	t := u.FindRefreshToken(value)
	if t == nil || !t.Active(now) {
		return common.ErrTokenNotActive
	}
	t.Revoke()
	u.revoked = append(u.revoked, value)
	return nil
}

// PendingChanges lists tokens added and token values revoked since the
// aggregate was loaded or last committed.
func (u *User) PendingChanges() (added []*RefreshToken, revoked []string) {
	return u.added, u.revoked
}

// HasPendingChanges reports whether Save has anything to write.
func (u *User) HasPendingChanges() bool {
	return len(u.added) > 0 || len(u.revoked) > 0
}

// CommitChanges clears the pending change set. Stores call it after a
// successful commit.
func (u *User) CommitChanges() {
	u.added = nil
	u.revoked = nil
}

// ActiveRefreshTokens returns the tokens that are active at now.
func (u *User) ActiveRefreshTokens(now time.Time) []*RefreshToken {
	var res []*RefreshToken
	for _, t := range u.RefreshTokens {
		if t.Active(now) {
			res = append(res, t)
		}
	}
	return res
}
