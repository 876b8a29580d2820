package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/genricoloni/nowink/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const stopTimeout = 15 * time.Second

// flagKeys maps command-line flags to configuration keys
var flagKeys = map[string]string{
	"source":      config.KeySourceMode,
	"endpoint":    config.KeyEndpoint,
	"user":        config.KeyUser,
	"driver":      config.KeyDisplayDriver,
	"preview-dir": config.KeyPreviewDir,
	"cache-dir":   config.KeyCacheDir,
	"rotate180":   config.KeyRotate180,
	"log-level":   config.KeyLogLevel,
}

// cli holds the state shared by all subcommands
type cli struct {
	configFile string
	v          *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "nowink",
		Short:         "Show the currently playing track on an e-paper display.",
		Long:          `nowink follows a now-playing feed and keeps a Waveshare 2.13" e-paper panel up to date with the track, artist and album art.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default ./nowink.yaml or ~/.config/nowink/nowink.yaml)")
	flags.String("source", "", "feed source: poll, push or mpris")
	flags.String("endpoint", "", "HTTP now-playing endpoint")
	flags.String("user", "", "feed user identifier")
	flags.String("driver", "", "display driver: waveshare2in13v4 or png")
	flags.String("preview-dir", "", "output directory of the png driver")
	flags.String("cache-dir", "", "album art cache directory")
	flags.Bool("rotate180", false, "rotate frames for an upside-down panel")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the display daemon (default)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.run(cmd.Context())
			},
		},
		newPreviewCmd(c),
		newCacheCmd(c),
	)
	return root
}

// load resolves configuration: defaults < file < environment < flags
func (c *cli) load(cmd *cobra.Command) error {
	v, err := config.NewViper(c.configFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	c.v = v
	return nil
}

func (c *cli) run(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	app := fx.New(
		fx.Supply(c.v),
		AppOptions,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}

	var code int
	select {
	case sig := <-app.Wait():
		code = sig.ExitCode
	case <-ctx.Done():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		return err
	}

	if code != 0 {
		return exitError{code: code}
	}
	return nil
}
