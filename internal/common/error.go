// Package common defines shared constants and sentinel errors used across
// client and server layers of AuthKeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenNotActive is returned when a refresh token is revoked or past
	// its expiry at the moment it is presented.
	ErrTokenNotActive = errors.New("refresh token not active")

	// ErrTokenConsumed is returned by stores when a conditional revoke finds
	// the token already revoked, i.e. a concurrent rotation won the race.
	ErrTokenConsumed = errors.New("refresh token already consumed")

	// ErrSigningFailure signals a missing or unusable signing key. It is a
	// startup condition, not a per-request one.
	ErrSigningFailure = errors.New("signing failure")

	// ErrStoreUnavailable wraps transient persistence failures. Callers may
	// retry the whole operation.
	ErrStoreUnavailable = errors.New("store unavailable")
)
