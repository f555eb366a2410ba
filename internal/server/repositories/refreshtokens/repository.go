package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByValue(ctx context.Context, value string) (*models.RefreshToken, error)
	ListByUser(ctx context.Context, userID string) ([]*models.RefreshToken, error)
	// Revoke flips an unrevoked token to revoked. It reports false, without
	// error, when the token is unknown or was already revoked.
	Revoke(ctx context.Context, value string) (bool, error)
}
