package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	findTokenQ = `(?s)^SELECT\s+value,.*FROM\s+refresh_tokens\s+WHERE\s+value\s*=\s*\$1$`
	findUserQ  = `(?s)^SELECT\s+id,\s*email,\s*password_hash,\s*created_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	listQ      = `(?s)^SELECT\s+value,.*FROM\s+refresh_tokens\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY`
	revokeQ    = `(?s)^UPDATE\s+refresh_tokens\s+SET\s+revoked\s*=\s*true\s+WHERE\s+value\s*=\s*\$1\s+AND\s+revoked\s*=\s*false$`
	insertQ    = `(?s)^INSERT\s+INTO\s+refresh_tokens\b`
)

var tokenCols = []string{"value", "user_id", "issued_at", "expires_at", "revoked"}

func newSQLStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db, repomanager.NewPostgresRepositoryManager()), mock
}

func pendingRotation() *models.User {
	exp := baseTime.Add(24 * time.Hour)
	u := &models.User{ID: "u1", RefreshTokens: []*models.RefreshToken{
		{Value: "old", UserID: "u1", IssuedAt: baseTime, ExpiresAt: exp},
	}}
	_ = u.RevokeRefreshToken("old", baseTime.Add(time.Minute))
	u.AddRefreshToken(&models.RefreshToken{Value: "new", UserID: "u1", IssuedAt: baseTime, ExpiresAt: exp})
	return u
}

func TestSQLStore_FindOwnerByTokenValue(t *testing.T) {
	s, mock := newSQLStore(t)
	exp := baseTime.Add(24 * time.Hour)

	mock.ExpectQuery(findTokenQ).WithArgs("old").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow("old", "u1", baseTime, exp, true))
	mock.ExpectQuery(findUserQ).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
			AddRow("u1", "a@example.com", "h", baseTime))
	mock.ExpectQuery(listQ).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(tokenCols).
			AddRow("old", "u1", baseTime, exp, true).
			AddRow("new", "u1", baseTime.Add(time.Minute), exp, false))

	u, err := s.FindOwnerByTokenValue(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)
	require.Len(t, u.RefreshTokens, 2)
	assert.True(t, u.FindRefreshToken("old").Revoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FindOwnerByTokenValue_NotFound(t *testing.T) {
	s, mock := newSQLStore(t)
	mock.ExpectQuery(findTokenQ).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := s.FindOwnerByTokenValue(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLStore_Save_CommitsRevokeAndInsert(t *testing.T) {
	s, mock := newSQLStore(t)
	u := pendingRotation()

	mock.ExpectBegin()
	mock.ExpectExec(revokeQ).WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertQ).WithArgs("new", "u1", sqlmock.AnyArg(), sqlmock.AnyArg(), false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Save(context.Background(), u))
	assert.False(t, u.HasPendingChanges())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Save_LostRaceRollsBack(t *testing.T) {
	s, mock := newSQLStore(t)
	u := pendingRotation()

	mock.ExpectBegin()
	mock.ExpectExec(revokeQ).WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.Save(context.Background(), u)
	assert.ErrorIs(t, err, common.ErrTokenConsumed)
	assert.True(t, u.HasPendingChanges())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Save_InsertFailureRollsBack(t *testing.T) {
	s, mock := newSQLStore(t)
	u := pendingRotation()

	mock.ExpectBegin()
	mock.ExpectExec(revokeQ).WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertQ).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Save(context.Background(), u)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Save_BeginFailure(t *testing.T) {
	s, mock := newSQLStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := s.Save(context.Background(), pendingRotation())
	assert.ErrorContains(t, err, "too many connections")
}

func TestSQLStore_Save_NoChanges(t *testing.T) {
	s, mock := newSQLStore(t)

	require.NoError(t, s.Save(context.Background(), &models.User{ID: "u1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
