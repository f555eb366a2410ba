// Package common contains shared constants and sentinel errors used across
// AuthKeeper components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// RefreshTokenBytes is the amount of entropy in an issued refresh token value.
const RefreshTokenBytes = 32
