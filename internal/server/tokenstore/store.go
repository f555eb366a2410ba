// Package tokenstore persists users' refresh-token collections. Every
// implementation applies a user's pending changes all-or-nothing, and a
// revocation only succeeds if the token is still unrevoked at commit time.
package tokenstore

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Store is the durable home of refresh tokens.
type Store interface {
	// FindOwnerByTokenValue loads the user owning the token with exactly
	// this value, together with all of that user's tokens. Unknown values
	// yield common.ErrorNotFound.
	FindOwnerByTokenValue(ctx context.Context, value string) (*models.User, error)

	// Save commits the user's pending token changes in one unit of work and
	// clears them. If any pending revocation finds its token already revoked
	// (or gone), nothing is written and common.ErrTokenConsumed is returned.
	Save(ctx context.Context, user *models.User) error
}

const (
	KindPostgres = "postgres"
	KindRedis    = "redis"
	KindMemory   = "memory"
)
