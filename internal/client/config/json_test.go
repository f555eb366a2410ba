package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

// withArgs replaces os.Args for the duration of the test.
func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"authctl"}, args...)
}

func defaultConfig() Config {
	var c Config
	c.LoadDefaults()
	return c
}

func TestParseJson(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want Config
	}{
		{
			name: "all fields",
			data: map[string]any{"server_endpoint_addr": "auth.example:9000", "request_timeout": "30s"},
			want: Config{ServerEndpointAddr: "auth.example:9000", RequestTimeout: 30 * time.Second},
		},
		{
			name: "timeout as nanoseconds",
			data: map[string]any{"request_timeout": int64(2 * time.Second)},
			want: Config{ServerEndpointAddr: "127.0.0.1:50051", RequestTimeout: 2 * time.Second},
		},
		{
			name: "absent keys keep defaults",
			data: map[string]any{},
			want: defaultConfig(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withArgs(t, "-config", writeTempJSON(t, "", "", tt.data))

			cfg := defaultConfig()
			parseJson(&cfg)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestParseJson_NoFlag(t *testing.T) {
	withArgs(t, "whoami", "tok")

	cfg := Config{ServerEndpointAddr: "keep:1", RequestTimeout: time.Minute}
	parseJson(&cfg)
	assert.Equal(t, Config{ServerEndpointAddr: "keep:1", RequestTimeout: time.Minute}, cfg)
}

func TestParseJson_Panics(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

	for name, path := range map[string]string{
		"invalid json": bad,
		"missing file": filepath.Join(dir, "nope.json"),
	} {
		t.Run(name, func(t *testing.T) {
			withArgs(t, "-c", path)
			require.Panics(t, func() { parseJson(&Config{}) })
		})
	}
}
