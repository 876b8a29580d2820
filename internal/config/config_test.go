package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDefaults(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.Set(KeyCacheDir, t.TempDir())
	return v
}

func TestNewAppConfig_Defaults(t *testing.T) {
	cfg, err := NewAppConfig(zap.NewNop(), newDefaults(t))
	require.NoError(t, err)

	assert.Equal(t, ModePoll, cfg.GetSourceMode())
	assert.Equal(t, "https://api.kyle.so/spotify/current-track", cfg.GetEndpoint())
	assert.Equal(t, "wss://api.kyle.so/spotify", cfg.GetWebSocketEndpoint())
	assert.Equal(t, 15*time.Second, cfg.GetPollInterval())
	assert.Equal(t, 10*time.Second, cfg.GetPollTimeout())
	assert.Equal(t, 2*time.Second, cfg.GetReconnectBase())
	assert.Equal(t, 60*time.Second, cfg.GetReconnectMaxDelay())
	assert.Equal(t, 10, cfg.GetReconnectMaxAttempts())
	assert.Equal(t, 500*time.Millisecond, cfg.GetDebounce())
	assert.Equal(t, 600*time.Second, cfg.GetFullRefreshInterval())
	assert.Equal(t, 30*time.Second, cfg.GetCheckInterval())
	assert.True(t, cfg.GetArtEnabled())
	assert.Equal(t, 96, cfg.GetArtSize())
	assert.Equal(t, 8, cfg.GetCornerRadius())
	assert.Equal(t, "floyd-steinberg", cfg.GetDither())
	assert.Equal(t, "persist", cfg.GetCachePolicy())
	assert.Equal(t, 64, cfg.GetCacheMemoryEntries())
	assert.Equal(t, "waveshare2in13v4", cfg.GetDisplayDriver())
	assert.Equal(t, 250, cfg.GetDisplayWidth())
	assert.Equal(t, 122, cfg.GetDisplayHeight())
	assert.False(t, cfg.GetRotate180())
	assert.Equal(t, 3, cfg.GetMaxHardwareFailures())
	assert.Equal(t, "Now Playing:", cfg.GetHeader())
	assert.Equal(t, "status", cfg.GetIdlePolicy())
	assert.Empty(t, cfg.GetFontPath())
	assert.Equal(t, "info", cfg.GetLogLevel())
}

func TestDefaultCacheDirFollowsXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/var/cache/test")
	if dir, err := os.UserCacheDir(); err != nil || dir != "/var/cache/test" {
		t.Skip("user cache dir does not follow XDG_CACHE_HOME on this platform")
	}
	assert.Equal(t, "/var/cache/test/nowink/art", defaultCacheDir())
}

func TestNewViper_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NOWINK_SOURCE_MODE", "push")
	t.Setenv("NOWINK_SOURCE_USER", "kyle")
	t.Setenv("NOWINK_REFRESH_FULL_INTERVAL", "5m")
	t.Setenv("NOWINK_DISPLAY_ROTATE180", "true")
	t.Setenv("NOWINK_CACHE_DIR", t.TempDir())

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := NewAppConfig(zap.NewNop(), v)
	require.NoError(t, err)

	assert.Equal(t, ModePush, cfg.GetSourceMode())
	assert.Equal(t, "kyle", cfg.GetUser())
	assert.Equal(t, 5*time.Minute, cfg.GetFullRefreshInterval())
	assert.True(t, cfg.GetRotate180())
}

func TestNewViper_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nowink.yaml")
	content := `
source:
  mode: mpris
  debounce: 0s
art:
  size: 80
  dither: ordered
display:
  driver: png
  preview_dir: ` + dir + `
cache:
  dir: ` + dir + `
  policy: session
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := NewAppConfig(zap.NewNop(), v)
	require.NoError(t, err)

	assert.Equal(t, ModeMPRIS, cfg.GetSourceMode())
	assert.Zero(t, cfg.GetDebounce())
	assert.Equal(t, 80, cfg.GetArtSize())
	assert.Equal(t, "ordered", cfg.GetDither())
	assert.Equal(t, "png", cfg.GetDisplayDriver())
	assert.Equal(t, dir, cfg.GetPreviewDir())
	assert.Equal(t, "session", cfg.GetCachePolicy())
	// untouched keys keep their defaults
	assert.Equal(t, 15*time.Second, cfg.GetPollInterval())
}

func TestNewViper_MissingExplicitFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewAppConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"unknown source mode", KeySourceMode, "carrier-pigeon"},
		{"unknown driver", KeyDisplayDriver, "hdmi"},
		{"unknown cache policy", KeyCachePolicy, "forever"},
		{"unknown idle policy", KeyIdlePolicy, "blink"},
		{"unknown dither", KeyDither, "atkinson"},
		{"zero poll interval", KeyPollInterval, "0s"},
		{"negative full interval", KeyFullRefreshInterval, "-1m"},
		{"negative debounce", KeyDebounce, "-1s"},
		{"zero max attempts", KeyReconnectMaxAttempts, 0},
		{"art larger than panel", KeyArtSize, 200},
		{"radius larger than art", KeyCornerRadius, 60},
		{"empty cache dir", KeyCacheDir, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newDefaults(t)
			v.Set(tt.key, tt.val)

			_, err := NewAppConfig(zap.NewNop(), v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("NOWINK_TEST_DIR", "/srv/art")

	tests := []struct {
		in   string
		want string
	}{
		{"~/cache", filepath.Join(home, "cache")},
		{"$NOWINK_TEST_DIR/x", "/srv/art/x"},
		{"/abs/path", "/abs/path"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, expandPath(tt.in), tt.in)
	}
}
