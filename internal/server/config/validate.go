package config

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokenstore"
)

// Validate reports configuration that must stop the server at startup.
// Signing problems wrap common.ErrSigningFailure.
func (c *Config) Validate() error {
	var errs []error

	if len(c.SecretKey) < auth.MinSigningKeyBytes {
		errs = append(errs, fmt.Errorf("%w: secret key must be at least %d bytes", common.ErrSigningFailure, auth.MinSigningKeyBytes))
	}
	if c.Issuer == "" || c.Audience == "" {
		errs = append(errs, fmt.Errorf("%w: issuer and audience are required", common.ErrSigningFailure))
	}
	if c.AccessTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("access token lifetime must be positive"))
	}
	if c.RefreshTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("refresh token lifetime must be positive"))
	}
	if c.ClockSkew < 0 {
		errs = append(errs, errors.New("clock skew must not be negative"))
	}

	switch c.TokenStore {
	case tokenstore.KindPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("database DSN is required for the postgres token store"))
		}
	case tokenstore.KindRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis address is required for the redis token store"))
		}
	case tokenstore.KindMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown token store %q", c.TokenStore))
	}

	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}

	return errors.Join(errs...)
}
