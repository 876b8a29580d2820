package main

import (
	"context"
	"fmt"

	"github.com/genricoloni/nowink/internal/artcache"
	"github.com/genricoloni/nowink/internal/config"
	"github.com/genricoloni/nowink/internal/display"
	"github.com/genricoloni/nowink/internal/domain"
	"github.com/genricoloni/nowink/internal/engine"
	"github.com/genricoloni/nowink/internal/fetcher"
	"github.com/genricoloni/nowink/internal/layout"
	"github.com/genricoloni/nowink/internal/mono"
	"github.com/genricoloni/nowink/internal/processor"
	"github.com/genricoloni/nowink/internal/source"
	"github.com/genricoloni/nowink/internal/source/mpris"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AppOptions is the daemon's dependency graph. A *viper.Viper must be supplied.
var AppOptions = fx.Options(
	fx.Provide(
		newLogger,
		newConfig,
		newClock,
		newFetcher,
		newArtProcessor,
		newArtCache,
		newArtResolver,
		newComposer,
		newSession,
		newFeed,
		newEngine,
	),
	fx.Invoke(registerHooks),
)

// newLogger creates a new zap logger instance
func newLogger(v *viper.Viper) (*zap.Logger, error) {
	var zcfg zap.Config
	if v.GetBool(config.KeyLogDevelopment) {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	if lvl := v.GetString(config.KeyLogLevel); lvl != "" {
		level, err := zapcore.ParseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zcfg.Build()
}

func newConfig(logger *zap.Logger, v *viper.Viper) (domain.Config, error) {
	return config.NewAppConfig(logger, v)
}

func newClock() clockwork.Clock {
	return clockwork.NewRealClock()
}

func newFetcher(logger *zap.Logger, cfg domain.Config) domain.Fetcher {
	return fetcher.NewHTTPFetcher(logger, cfg.GetArtTimeout())
}

func newArtProcessor(logger *zap.Logger, cfg domain.Config) (*processor.ArtProcessor, error) {
	method, err := mono.ParseMethod(cfg.GetDither())
	if err != nil {
		return nil, err
	}
	return processor.NewArtProcessor(logger, processor.ArtConfig{
		Size:         cfg.GetArtSize(),
		CornerRadius: cfg.GetCornerRadius(),
		Dither:       method,
	}), nil
}

func newArtCache(logger *zap.Logger, f domain.Fetcher, proc *processor.ArtProcessor, clock clockwork.Clock, cfg domain.Config) (*artcache.Cache, error) {
	return artcache.New(logger, f, proc, clock, artcache.Options{
		Dir:           cfg.GetCacheDir(),
		Policy:        cfg.GetCachePolicy(),
		MemoryEntries: cfg.GetCacheMemoryEntries(),
		Timeout:       cfg.GetArtTimeout(),
	})
}

func newArtResolver(cache *artcache.Cache) domain.ArtResolver {
	return cache
}

func newComposer(logger *zap.Logger, cfg domain.Config) (domain.Composer, error) {
	fonts, err := layout.LoadFonts(cfg.GetFontPath())
	if err != nil {
		return nil, err
	}
	return layout.NewComposer(logger, layout.Options{
		Width:     cfg.GetDisplayWidth(),
		Height:    cfg.GetDisplayHeight(),
		Header:    cfg.GetHeader(),
		Rotate180: cfg.GetRotate180(),
	}, fonts), nil
}

func newSession(logger *zap.Logger, cfg domain.Config) (domain.Session, error) {
	return display.NewSession(logger, display.Options{
		Driver:     cfg.GetDisplayDriver(),
		PreviewDir: cfg.GetPreviewDir(),
		Width:      cfg.GetDisplayWidth(),
		Height:     cfg.GetDisplayHeight(),
	})
}

func newPoller(logger *zap.Logger, clock clockwork.Clock, cfg domain.Config) (*source.HTTPPoller, error) {
	return source.NewHTTPPoller(logger, clock, source.PollOptions{
		Endpoint: cfg.GetEndpoint(),
		User:     cfg.GetUser(),
		Interval: cfg.GetPollInterval(),
		Timeout:  cfg.GetPollTimeout(),
	})
}

// newFeed builds either a pushing Source or a Poller, depending on source.mode
func newFeed(logger *zap.Logger, clock clockwork.Clock, cfg domain.Config) (domain.Source, domain.Poller, error) {
	switch cfg.GetSourceMode() {
	case config.ModePoll:
		poller, err := newPoller(logger, clock, cfg)
		if err != nil {
			return nil, nil, err
		}
		return nil, poller, nil

	case config.ModePush:
		src, err := source.NewWebSocketSource(logger, source.NewWebSocketDialer(cfg.GetPollTimeout()), clock, source.PushOptions{
			Endpoint:    cfg.GetWebSocketEndpoint(),
			User:        cfg.GetUser(),
			BaseDelay:   cfg.GetReconnectBase(),
			MaxDelay:    cfg.GetReconnectMaxDelay(),
			MaxAttempts: cfg.GetReconnectMaxAttempts(),
		})
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil

	case config.ModeMPRIS:
		return mpris.NewSource(logger), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown source mode %q", cfg.GetSourceMode())
	}
}

func engineOptions(cfg domain.Config) engine.Options {
	return engine.Options{
		FullRefreshInterval: cfg.GetFullRefreshInterval(),
		CheckInterval:       cfg.GetCheckInterval(),
		Debounce:            cfg.GetDebounce(),
		IdlePolicy:          cfg.GetIdlePolicy(),
		ArtEnabled:          cfg.GetArtEnabled(),
		MaxFailures:         cfg.GetMaxHardwareFailures(),
	}
}

func newEngine(
	logger *zap.Logger,
	clock clockwork.Clock,
	cfg domain.Config,
	src domain.Source,
	poller domain.Poller,
	art domain.ArtResolver,
	composer domain.Composer,
	session domain.Session,
	shutdowner fx.Shutdowner,
) *engine.Engine {
	return engine.NewEngine(logger, clock, engineOptions(cfg), src, poller, art, composer, session, shutdowner)
}

// registerHooks sets up application lifecycle hooks
func registerHooks(lc fx.Lifecycle, logger *zap.Logger, eng *engine.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("nowink daemon started")
			return eng.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			return eng.Stop(ctx)
		},
	})
}
