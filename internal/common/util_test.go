package common

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString(t *testing.T) {
	for _, size := range []int{0, 16, RefreshTokenBytes} {
		s, err := MakeRandHexString(size)
		require.NoError(t, err)
		assert.Len(t, s, size*2)

		raw, err := hex.DecodeString(s)
		require.NoError(t, err)
		assert.Len(t, raw, size)
	}
}

func TestMakeRandHexString_Distinct(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for range 64 {
		s, err := MakeRandHexString(RefreshTokenBytes)
		require.NoError(t, err)
		_, dup := seen[s]
		require.False(t, dup, "duplicate refresh token value %s", Fingerprint(s))
		seen[s] = struct{}{}
	}
}

func TestWipeByteArray(t *testing.T) {
	password := []byte("s3cret")
	WipeByteArray(password)
	assert.Equal(t, make([]byte, 6), password)

	assert.NotPanics(t, func() { WipeByteArray(nil) })
}

func TestFingerprint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "***"},
		{"abcdefgh", "***"},
		{"abcdefgh12345", "abcdefgh…"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fingerprint(tt.in), "Fingerprint(%q)", tt.in)
	}
}
