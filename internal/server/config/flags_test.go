package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:8081", "-g", "127.0.0.1:9090", "-d", "db", "-s", "secret",
				"-i", "iss", "-u", "aud", "-t", "10", "-r", "14", "-k", "redis", "-R", "r:6379", "-l", "debug",
			},
			expected: &Config{
				EndpointAddrHTTP:             "127.0.0.1:8081",
				EndpointAddrGRPC:             "127.0.0.1:9090",
				DatabaseDSN:                  "db",
				SecretKey:                    "secret",
				Issuer:                       "iss",
				Audience:                     "aud",
				AccessTokenValidityDuration:  10 * time.Minute,
				RefreshTokenValidityDuration: 14 * 24 * time.Hour,
				TokenStore:                   "redis",
				RedisAddr:                    "r:6379",
				LogLevel:                     "debug",
			},
		},
		{
			name: "unset durations are kept",
			args: []string{"cmd", "-s", "secret", "-x", "ignored"},
			expected: &Config{
				SecretKey:                    "secret",
				AccessTokenValidityDuration:  90 * time.Second,
				RefreshTokenValidityDuration: 36 * time.Hour,
			},
		},
		{
			name:        "bad int panics",
			args:        []string{"cmd", "-t", "soon"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{
				AccessTokenValidityDuration:  90 * time.Second,
				RefreshTokenValidityDuration: 36 * time.Hour,
			}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
