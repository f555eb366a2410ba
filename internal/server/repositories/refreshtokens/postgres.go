// Package refreshtokens provides a PostgreSQL-backed repository for refresh
// token records. Rows are never deleted; revocation is a conditional update.
package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// PostgresRepository works over dbx.DBTX, so the same code runs on *sql.DB
// or inside a transaction.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a token record. A value collision yields
// common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (value, user_id, issued_at, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.Value, token.UserID, token.IssuedAt, token.ExpiresAt, token.Revoked)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindByValue looks a token up by exact value, or returns
// common.ErrorNotFound.
func (r *PostgresRepository) FindByValue(ctx context.Context, value string) (*models.RefreshToken, error) {
	query := `
		SELECT value, user_id, issued_at, expires_at, revoked
		FROM refresh_tokens
		WHERE value = $1
	`
	t := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, value).
		Scan(&t.Value, &t.UserID, &t.IssuedAt, &t.ExpiresAt, &t.Revoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// ListByUser returns all of a user's tokens, oldest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.RefreshToken, error) {
	query := `
		SELECT value, user_id, issued_at, expires_at, revoked
		FROM refresh_tokens
		WHERE user_id = $1
		ORDER BY issued_at, value
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var res []*models.RefreshToken
	for rows.Next() {
		t := &models.RefreshToken{}
		if err := rows.Scan(&t.Value, &t.UserID, &t.IssuedAt, &t.ExpiresAt, &t.Revoked); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, value string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = true
		WHERE value = $1 AND revoked = false
	`
	ok, err := dbx.ExecOne(ctx, r.db, query, value)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
