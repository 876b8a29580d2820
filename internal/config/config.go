// Package config resolves the daemon configuration from defaults, an optional
// YAML file, NOWINK_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Configuration keys
const (
	KeySourceMode           = "source.mode"
	KeyEndpoint             = "source.endpoint"
	KeyWebSocketEndpoint    = "source.ws_endpoint"
	KeyUser                 = "source.user"
	KeyPollInterval         = "source.poll_interval"
	KeyPollTimeout          = "source.poll_timeout"
	KeyReconnectBase        = "source.reconnect_base"
	KeyReconnectMaxDelay    = "source.reconnect_max_delay"
	KeyReconnectMaxAttempts = "source.reconnect_max_attempts"
	KeyDebounce             = "source.debounce"
	KeyFullRefreshInterval  = "refresh.full_interval"
	KeyCheckInterval        = "refresh.check_interval"
	KeyArtEnabled           = "art.enabled"
	KeyArtSize              = "art.size"
	KeyArtTimeout           = "art.timeout"
	KeyCornerRadius         = "art.corner_radius"
	KeyDither               = "art.dither"
	KeyCacheDir             = "cache.dir"
	KeyCachePolicy          = "cache.policy"
	KeyCacheMemoryEntries   = "cache.memory_entries"
	KeyDisplayDriver        = "display.driver"
	KeyDisplayWidth         = "display.width"
	KeyDisplayHeight        = "display.height"
	KeyRotate180            = "display.rotate180"
	KeyPreviewDir           = "display.preview_dir"
	KeyMaxFailures          = "display.max_failures"
	KeyHeader               = "layout.header"
	KeyIdlePolicy           = "layout.idle_policy"
	KeyFontPath             = "layout.font_path"
	KeyLogLevel             = "log.level"
	KeyLogDevelopment       = "log.development"
)

// Source modes
const (
	ModePoll  = "poll"
	ModePush  = "push"
	ModeMPRIS = "mpris"
)

const (
	envPrefix      = "NOWINK"
	configName     = "nowink"
	defaultHeader  = "Now Playing:"
	defaultEndpoint = "https://api.kyle.so/spotify/current-track"
)

var allowed = map[string][]string{
	KeySourceMode:    {ModePoll, ModePush, ModeMPRIS},
	KeyDisplayDriver: {"waveshare2in13v4", "png"},
	KeyCachePolicy:   {"persist", "session"},
	KeyIdlePolicy:    {"status", "skip"},
	KeyDither:        {"floyd-steinberg", "ordered"},
}

// SetDefaults registers the default of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeySourceMode, ModePoll)
	v.SetDefault(KeyEndpoint, defaultEndpoint)
	v.SetDefault(KeyWebSocketEndpoint, "wss://api.kyle.so/spotify")
	v.SetDefault(KeyUser, "")
	v.SetDefault(KeyPollInterval, 15*time.Second)
	v.SetDefault(KeyPollTimeout, 10*time.Second)
	v.SetDefault(KeyReconnectBase, 2*time.Second)
	v.SetDefault(KeyReconnectMaxDelay, 60*time.Second)
	v.SetDefault(KeyReconnectMaxAttempts, 10)
	v.SetDefault(KeyDebounce, 500*time.Millisecond)

	v.SetDefault(KeyFullRefreshInterval, 600*time.Second)
	v.SetDefault(KeyCheckInterval, 30*time.Second)

	v.SetDefault(KeyArtEnabled, true)
	v.SetDefault(KeyArtSize, 96)
	v.SetDefault(KeyArtTimeout, 15*time.Second)
	v.SetDefault(KeyCornerRadius, 8)
	v.SetDefault(KeyDither, "floyd-steinberg")

	v.SetDefault(KeyCacheDir, defaultCacheDir())
	v.SetDefault(KeyCachePolicy, "persist")
	v.SetDefault(KeyCacheMemoryEntries, 64)

	v.SetDefault(KeyDisplayDriver, "waveshare2in13v4")
	v.SetDefault(KeyDisplayWidth, 250)
	v.SetDefault(KeyDisplayHeight, 122)
	v.SetDefault(KeyRotate180, false)
	v.SetDefault(KeyPreviewDir, "/tmp/nowink")
	v.SetDefault(KeyMaxFailures, 3)

	v.SetDefault(KeyHeader, defaultHeader)
	v.SetDefault(KeyIdlePolicy, "status")
	v.SetDefault(KeyFontPath, "")

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogDevelopment, false)
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "nowink", "art")
}

// NewViper returns a viper instance with defaults, environment binding and
// the config file (if any) loaded. A missing file is not an error.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		// an explicit file must exist
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/nowink")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

// AppConfig holds the resolved configuration
type AppConfig struct {
	logger *zap.Logger
	v      *viper.Viper

	cacheDir   string
	previewDir string
	fontPath   string
}

// NewAppConfig validates v and exposes it through typed getters
func NewAppConfig(logger *zap.Logger, v *viper.Viper) (*AppConfig, error) {
	c := &AppConfig{
		logger:     logger,
		v:          v,
		cacheDir:   expandPath(v.GetString(KeyCacheDir)),
		previewDir: expandPath(v.GetString(KeyPreviewDir)),
		fontPath:   expandPath(v.GetString(KeyFontPath)),
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("Configuration loaded",
		zap.String("sourceMode", c.GetSourceMode()),
		zap.String("endpoint", c.activeEndpoint()),
		zap.String("displayDriver", c.GetDisplayDriver()),
		zap.Duration("fullRefreshInterval", c.GetFullRefreshInterval()),
		zap.String("cacheDir", c.cacheDir),
		zap.String("cachePolicy", c.GetCachePolicy()),
		zap.Bool("artEnabled", c.GetArtEnabled()))

	return c, nil
}

func (c *AppConfig) activeEndpoint() string {
	switch c.GetSourceMode() {
	case ModePush:
		return c.GetWebSocketEndpoint()
	case ModeMPRIS:
		return "session bus"
	default:
		return c.GetEndpoint()
	}
}

func (c *AppConfig) validate() error {
	var err error

	for key, values := range allowed {
		got := c.v.GetString(key)
		if !contains(values, got) {
			err = multierr.Append(err, fmt.Errorf("%s: %q is not one of %s", key, got, strings.Join(values, ", ")))
		}
	}

	for _, key := range []string{
		KeyPollInterval, KeyPollTimeout, KeyReconnectBase, KeyReconnectMaxDelay,
		KeyFullRefreshInterval, KeyCheckInterval, KeyArtTimeout,
	} {
		if c.v.GetDuration(key) <= 0 {
			err = multierr.Append(err, fmt.Errorf("%s must be a positive duration", key))
		}
	}
	if c.GetDebounce() < 0 {
		err = multierr.Append(err, fmt.Errorf("%s must not be negative", KeyDebounce))
	}

	for _, key := range []string{KeyReconnectMaxAttempts, KeyCacheMemoryEntries, KeyMaxFailures, KeyDisplayWidth, KeyDisplayHeight} {
		if c.v.GetInt(key) <= 0 {
			err = multierr.Append(err, fmt.Errorf("%s must be positive", key))
		}
	}

	if size := c.GetArtSize(); size <= 0 || size > c.GetDisplayHeight() {
		err = multierr.Append(err, fmt.Errorf("%s must be between 1 and the display height (%d), got %d", KeyArtSize, c.GetDisplayHeight(), size))
	}
	if r := c.GetCornerRadius(); r < 0 || r*2 > c.GetArtSize() {
		err = multierr.Append(err, fmt.Errorf("%s must be between 0 and half the art size, got %d", KeyCornerRadius, r))
	}
	if c.cacheDir == "" {
		err = multierr.Append(err, fmt.Errorf("%s must not be empty", KeyCacheDir))
	}

	return err
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// expandPath resolves environment variables and a leading ~
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}

// GetSourceMode returns poll, push or mpris
func (c *AppConfig) GetSourceMode() string { return c.v.GetString(KeySourceMode) }

// GetEndpoint returns the HTTP poll endpoint
func (c *AppConfig) GetEndpoint() string { return c.v.GetString(KeyEndpoint) }

// GetWebSocketEndpoint returns the push base URL
func (c *AppConfig) GetWebSocketEndpoint() string { return c.v.GetString(KeyWebSocketEndpoint) }

// GetUser returns the feed user identifier
func (c *AppConfig) GetUser() string { return c.v.GetString(KeyUser) }

func (c *AppConfig) GetPollInterval() time.Duration { return c.v.GetDuration(KeyPollInterval) }

func (c *AppConfig) GetPollTimeout() time.Duration { return c.v.GetDuration(KeyPollTimeout) }

func (c *AppConfig) GetReconnectBase() time.Duration { return c.v.GetDuration(KeyReconnectBase) }

func (c *AppConfig) GetReconnectMaxDelay() time.Duration {
	return c.v.GetDuration(KeyReconnectMaxDelay)
}

func (c *AppConfig) GetReconnectMaxAttempts() int { return c.v.GetInt(KeyReconnectMaxAttempts) }

// GetDebounce returns the quiet period applied to pushed events
func (c *AppConfig) GetDebounce() time.Duration { return c.v.GetDuration(KeyDebounce) }

// GetFullRefreshInterval returns the anti-ghosting threshold
func (c *AppConfig) GetFullRefreshInterval() time.Duration {
	return c.v.GetDuration(KeyFullRefreshInterval)
}

func (c *AppConfig) GetCheckInterval() time.Duration { return c.v.GetDuration(KeyCheckInterval) }

func (c *AppConfig) GetArtEnabled() bool { return c.v.GetBool(KeyArtEnabled) }

func (c *AppConfig) GetArtSize() int { return c.v.GetInt(KeyArtSize) }

func (c *AppConfig) GetArtTimeout() time.Duration { return c.v.GetDuration(KeyArtTimeout) }

func (c *AppConfig) GetCornerRadius() int { return c.v.GetInt(KeyCornerRadius) }

func (c *AppConfig) GetDither() string { return c.v.GetString(KeyDither) }

// GetCacheDir returns the expanded disk tier directory
func (c *AppConfig) GetCacheDir() string { return c.cacheDir }

func (c *AppConfig) GetCachePolicy() string { return c.v.GetString(KeyCachePolicy) }

func (c *AppConfig) GetCacheMemoryEntries() int { return c.v.GetInt(KeyCacheMemoryEntries) }

func (c *AppConfig) GetDisplayDriver() string { return c.v.GetString(KeyDisplayDriver) }

func (c *AppConfig) GetDisplayWidth() int { return c.v.GetInt(KeyDisplayWidth) }

func (c *AppConfig) GetDisplayHeight() int { return c.v.GetInt(KeyDisplayHeight) }

func (c *AppConfig) GetRotate180() bool { return c.v.GetBool(KeyRotate180) }

// GetPreviewDir returns the expanded output directory of the png driver
func (c *AppConfig) GetPreviewDir() string { return c.previewDir }

func (c *AppConfig) GetMaxHardwareFailures() int { return c.v.GetInt(KeyMaxFailures) }

func (c *AppConfig) GetHeader() string { return c.v.GetString(KeyHeader) }

func (c *AppConfig) GetIdlePolicy() string { return c.v.GetString(KeyIdlePolicy) }

// GetFontPath returns the TTF override, empty for the embedded font
func (c *AppConfig) GetFontPath() string { return c.fontPath }

// GetLogLevel returns the zap level name
func (c *AppConfig) GetLogLevel() string { return c.v.GetString(KeyLogLevel) }

// GetLogDevelopment reports whether the development logger is wanted
func (c *AppConfig) GetLogDevelopment() bool { return c.v.GetBool(KeyLogDevelopment) }
