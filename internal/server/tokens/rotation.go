package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/instrumentation"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokenstore"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RotationService exchanges a refresh token for a new pair.
type RotationService struct {
	store  tokenstore.Store
	issuer PairIssuer
	log    logging.Logger
	inst   *instrumentation.Instruments
	now    func() time.Time
}

func NewRotationService(store tokenstore.Store, issuer PairIssuer, log logging.Logger,
	inst *instrumentation.Instruments) *RotationService {
	if inst == nil {
		inst = instrumentation.Noop()
	}
	return &RotationService{
		store:  store,
		issuer: issuer,
		log:    log.With("module", "tokens.rotation"),
		inst:   inst,
		now:    time.Now,
	}
}

// Rotate retires oldValue and returns a fresh pair. Every rejection (unknown,
// expired, revoked, or lost to a concurrent rotation) is reported as
// common.ErrorUnauthorized; the precise reason is only logged. Persistence
// failures are common.ErrStoreUnavailable.
//
// The retirement and the replacement token are committed together by the
// issuer's single Save, so there is no state in which the old token is
// revoked but no replacement exists.
func (s *RotationService) Rotate(ctx context.Context, oldValue string) (*models.TokenPair, error) {
	fp := common.Fingerprint(oldValue)
	ctx, span := s.inst.StartSpan(ctx, "tokens.Rotate", attribute.String("refresh_token", fp))
	defer span.End()

	if oldValue == "" {
		return nil, s.reject(ctx, instrumentation.ReasonEmpty, "", fp)
	}

	user, err := s.store.FindOwnerByTokenValue(ctx, oldValue)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.reject(ctx, instrumentation.ReasonNotRecognized, "", fp)
		}
		span.SetStatus(codes.Error, "lookup")
		s.log.Error(ctx, "refresh token lookup failed", "refresh_token", fp, "error", err)
		return nil, storeError(err)
	}

	token := user.FindRefreshToken(oldValue)
	if token == nil {
		return nil, s.reject(ctx, instrumentation.ReasonNotRecognized, user.ID, fp)
	}

	now := s.now()
	switch token.Status(now) {
	case models.TokenRevoked:
		s.inst.RecordReuse(ctx)
		s.log.Warn(ctx, "refresh token reuse detected", "user_id", user.ID, "refresh_token", fp)
		return nil, s.reject(ctx, instrumentation.ReasonRevoked, user.ID, fp)
	case models.TokenExpired:
		return nil, s.reject(ctx, instrumentation.ReasonExpired, user.ID, fp)
	}

	if err := user.RevokeRefreshToken(oldValue, now); err != nil {
		return nil, s.reject(ctx, instrumentation.ReasonRevoked, user.ID, fp)
	}

	pair, err := s.issuer.IssuePair(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrTokenConsumed) {
			return nil, s.reject(ctx, instrumentation.ReasonConsumed, user.ID, fp)
		}
		span.SetStatus(codes.Error, "issue")
		s.log.Error(ctx, "refresh token rotation failed", "user_id", user.ID, "refresh_token", fp, "error", err)
		return nil, err
	}

	s.inst.RecordRotated(ctx)
	s.log.Info(ctx, "refresh token rotated", "user_id", user.ID,
		"refresh_token", fp, "new_refresh_token", common.Fingerprint(pair.RefreshToken))
	return pair, nil
}

func (s *RotationService) reject(ctx context.Context, reason, userID, fp string) error {
	s.inst.RecordRejected(ctx, reason)
	s.log.Warn(ctx, "refresh token rejected", "reason", reason, "user_id", userID, "refresh_token", fp)
	return common.ErrorUnauthorized
}
