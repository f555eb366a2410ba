// Package auth holds the server-side credential primitives: the signed
// access-token codec and the password hasher.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSigningKeyBytes is the shortest HMAC key the codec accepts (256 bits).
const MinSigningKeyBytes = 32

var (
	ErrInvalidSignature = errors.New("access token: invalid signature")
	ErrExpired          = errors.New("access token: expired")
	ErrWrongIssuer      = errors.New("access token: wrong issuer")
	ErrWrongAudience    = errors.New("access token: wrong audience")
	ErrMalformed        = errors.New("access token: malformed")
)

// Claims is the payload of an access token: the registered claims
// (sub, jti, iat, exp, iss, aud) plus the user's email.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Subject identifies who a token is minted for.
type Subject struct {
	ID    string
	Email string
}

type CodecConfig struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	Lifetime   time.Duration
	// Leeway is the tolerated clock skew when checking exp. Zero is strict.
	Leeway time.Duration
}

// Codec encodes and decodes HS256 access tokens. It is immutable after
// construction and safe for concurrent use.
type Codec struct {
	key      []byte
	issuer   string
	audience string
	lifetime time.Duration
	parser   *jwt.Parser
	now      func() time.Time
}

// NewCodec validates cfg and returns a Codec. A missing or short key, or an
// incomplete issuer/audience/lifetime, yields common.ErrSigningFailure.
func NewCodec(cfg CodecConfig) (*Codec, error) {
	if len(cfg.SigningKey) < MinSigningKeyBytes {
		return nil, fmt.Errorf("%w: signing key must be at least %d bytes", common.ErrSigningFailure, MinSigningKeyBytes)
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, fmt.Errorf("%w: issuer and audience are required", common.ErrSigningFailure)
	}
	if cfg.Lifetime <= 0 {
		return nil, fmt.Errorf("%w: access token lifetime must be positive", common.ErrSigningFailure)
	}
	if cfg.Leeway < 0 {
		return nil, fmt.Errorf("%w: negative clock skew", common.ErrSigningFailure)
	}

	key := make([]byte, len(cfg.SigningKey))
	copy(key, cfg.SigningKey)

	c := &Codec{
		key:      key,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		lifetime: cfg.Lifetime,
		now:      time.Now,
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	return c, nil
}

// Lifetime returns the configured access-token lifetime.
func (c *Codec) Lifetime() time.Duration { return c.lifetime }

// Encode mints a signed access token for s. Each call gets a fresh jti and
// issued-at; exp is exactly Lifetime after iat.
func (c *Codec) Encode(s Subject) (string, *Claims, error) {
	if s.ID == "" {
		return "", nil, fmt.Errorf("%w: empty subject", common.ErrSigningFailure)
	}

	iat := c.now().UTC().Truncate(jwt.TimePrecision)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(c.lifetime)),
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
		},
		Email: s.Email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", common.ErrSigningFailure, err)
	}
	return signed, claims, nil
}

// Decode verifies the signature and claims of token and returns its claims.
// The error is one of ErrInvalidSignature, ErrExpired, ErrWrongIssuer,
// ErrWrongAudience or ErrMalformed, wrapping the parser's detail.
func (c *Codec) Decode(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := c.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrMalformed)
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %v", ErrWrongIssuer, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: %v", ErrWrongAudience, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
