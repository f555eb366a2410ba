package models

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestUser_AddAndRevoke_TracksChanges(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	u := &User{ID: "u1", Email: "a@b.c"}
	old := &RefreshToken{Value: "old", UserID: "u1", IssuedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour)}
	u.RefreshTokens = []*RefreshToken{old}

	assert.False(t, u.HasPendingChanges())

	require.NoError(t, u.RevokeRefreshToken("old", now))
	fresh := NewRefreshToken("new", "u1", now, 24*time.Hour)
	u.AddRefreshToken(fresh)

	added, revoked := u.PendingChanges()
	assert.Equal(t, []*RefreshToken{fresh}, added)
	assert.Equal(t, []string{"old"}, revoked)
	assert.True(t, old.Revoked)
	assert.Len(t, u.RefreshTokens, 2)
	assert.Equal(t, []*RefreshToken{fresh}, u.ActiveRefreshTokens(now))

	u.CommitChanges()
	added, revoked = u.PendingChanges()
	assert.Empty(t, added)
	assert.Empty(t, revoked)
	assert.False(t, u.HasPendingChanges())
}

func TestUser_RevokeRefreshToken_Rejects(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	u := &User{ID: "u1", RefreshTokens: []*RefreshToken{
		{Value: "revoked", ExpiresAt: now.Add(time.Hour), Revoked: true},
		{Value: "expired", ExpiresAt: now},
	}}

	tests := []struct {
		name  string
		value string
	}{
		{"unknown", "missing"},
		{"already revoked", "revoked"},
		{"expired at boundary", "expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := u.RevokeRefreshToken(tt.value, now)
			assert.ErrorIs(t, err, common.ErrTokenNotActive)
		})
	}

	_, revoked := u.PendingChanges()
	assert.Empty(t, revoked)
	assert.True(t, u.FindRefreshToken("revoked").Revoked)
}
