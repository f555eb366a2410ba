package tokenstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// SQLStore keeps tokens in the refresh_tokens table. Save runs in a single
// transaction; each revocation is a conditional update that must hit
// exactly one row.
type SQLStore struct {
	db *sql.DB
	rm repomanager.RepositoryManager
}

func NewSQLStore(db *sql.DB, rm repomanager.RepositoryManager) *SQLStore {
	return &SQLStore{db: db, rm: rm}
}

func (s *SQLStore) FindOwnerByTokenValue(ctx context.Context, value string) (*models.User, error) {
	rt := s.rm.RefreshTokens(s.db)

	tok, err := rt.FindByValue(ctx, value)
	if err != nil {
		return nil, err
	}

	user, err := s.rm.Users(s.db).GetByID(ctx, tok.UserID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}

	user.RefreshTokens, err = rt.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *SQLStore) Save(ctx context.Context, user *models.User) error {
	if !user.HasPendingChanges() {
		return nil
	}
	added, revoked := user.PendingChanges()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rt := s.rm.RefreshTokens(tx)

		for _, value := range revoked {
			ok, err := rt.Revoke(ctx, value)
			if err != nil {
				return err
			}
			if !ok {
				return common.ErrTokenConsumed
			}
		}

		for _, t := range added {
			if err := rt.Create(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	user.CommitChanges()
	return nil
}
