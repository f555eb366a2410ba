// Package models defines the server-side domain types shared by stores,
// services and transports.
package models

import "time"

// TokenPair is returned by login, registration and rotation. ExpiresAt is
// the access token's expiry.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
