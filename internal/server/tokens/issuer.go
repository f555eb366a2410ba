// Package tokens mints access/refresh token pairs and rotates refresh
// tokens. Rotation is exactly-once: a refresh token can be exchanged by at
// most one caller, however many present it concurrently.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/instrumentation"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokenstore"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AccessTokenEncoder is the part of auth.Codec the issuer needs.
type AccessTokenEncoder interface {
	Encode(s auth.Subject) (string, *auth.Claims, error)
}

// PairIssuer mints a token pair for an already authenticated user.
type PairIssuer interface {
	IssuePair(ctx context.Context, user *models.User) (*models.TokenPair, error)
}

// Issuer appends a new refresh token to the user aggregate, persists the
// aggregate's pending changes and returns the new pair.
type Issuer struct {
	codec           AccessTokenEncoder
	store           tokenstore.Store
	refreshLifetime time.Duration
	log             logging.Logger
	inst            *instrumentation.Instruments

	now      func() time.Time
	newValue func() (string, error)
}

func NewIssuer(codec AccessTokenEncoder, store tokenstore.Store, refreshLifetime time.Duration,
	log logging.Logger, inst *instrumentation.Instruments) *Issuer {
	if inst == nil {
		inst = instrumentation.Noop()
	}
	return &Issuer{
		codec:           codec,
		store:           store,
		refreshLifetime: refreshLifetime,
		log:             log.With("module", "tokens.issuer"),
		inst:            inst,
		now:             time.Now,
		newValue: func() (string, error) {
			return common.MakeRandHexString(common.RefreshTokenBytes)
		},
	}
}

// IssuePair mints a pair for user. Any pending changes already recorded on
// user (such as a revocation during rotation) are saved in the same unit of
// work as the new refresh token.
//
// The access token is encoded before the save, so a committed save is never
// followed by a failure.
func (i *Issuer) IssuePair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	ctx, span := i.inst.StartSpan(ctx, "tokens.IssuePair", attribute.String("user.id", user.ID))
	defer span.End()

	value, err := i.newValue()
	if err != nil {
		span.SetStatus(codes.Error, "random source")
		return nil, fmt.Errorf("%w: refresh token value: %v", common.ErrorInternal, err)
	}

	access, claims, err := i.codec.Encode(auth.Subject{ID: user.ID, Email: user.Email})
	if err != nil {
		span.SetStatus(codes.Error, "encode")
		i.log.Error(ctx, "access token encode failed", "user_id", user.ID, "error", err)
		return nil, err
	}

	user.AddRefreshToken(models.NewRefreshToken(value, user.ID, i.now(), i.refreshLifetime))

	if err := i.store.Save(ctx, user); err != nil {
		span.SetStatus(codes.Error, "save")
		return nil, storeError(err)
	}

	i.inst.RecordIssued(ctx)
	i.log.Info(ctx, "token pair issued", "user_id", user.ID, "refresh_token", common.Fingerprint(value))

	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: value,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

// storeError maps persistence failures into the service taxonomy. A lost
// conditional revoke and caller cancellation pass through unchanged.
func storeError(err error) error {
	switch {
	case errors.Is(err, common.ErrTokenConsumed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
}
