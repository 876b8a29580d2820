package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/genricoloni/nowink/internal/display"
	"github.com/genricoloni/nowink/internal/domain"
	"github.com/genricoloni/nowink/internal/engine"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func newPreviewCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Fetch the current track once and render it to a PNG file",
		Long: `Poll the now-playing endpoint once, compose the frame exactly as the
daemon would and write it to the preview directory instead of the panel.

Examples:
  # Render the current track of a user
  nowink preview --user kyle --preview-dir /tmp/nowink`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, state, err := c.preview(cmd.Context())
			if err != nil {
				return err
			}
			printPreview(cmd, path, state)
			return nil
		},
	}
}

// preview runs one Handle cycle against a PNG session
func (c *cli) preview(ctx context.Context) (string, domain.NowPlayingState, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := newLogger(c.v)
	if err != nil {
		return "", domain.NowPlayingState{}, err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := newConfig(logger, c.v)
	if err != nil {
		return "", domain.NowPlayingState{}, err
	}
	clock := clockwork.NewRealClock()

	poller, err := newPoller(logger, clock, cfg)
	if err != nil {
		return "", domain.NowPlayingState{}, err
	}

	var art domain.ArtResolver
	if cfg.GetArtEnabled() {
		proc, err := newArtProcessor(logger, cfg)
		if err != nil {
			return "", domain.NowPlayingState{}, err
		}
		cache, err := newArtCache(logger, newFetcher(logger, cfg), proc, clock, cfg)
		if err != nil {
			return "", domain.NowPlayingState{}, err
		}
		art = cache
	}

	composer, err := newComposer(logger, cfg)
	if err != nil {
		return "", domain.NowPlayingState{}, err
	}

	session := display.NewPreview(logger, cfg.GetPreviewDir(), cfg.GetDisplayWidth(), cfg.GetDisplayHeight())
	eng := engine.NewEngine(logger, clock, engineOptions(cfg), nil, poller, art, composer, session, nil)

	state := poller.Poll(ctx)
	if err := eng.Handle(ctx, &state); err != nil {
		return "", state, err
	}
	if session.LastPath() == "" {
		return "", state, fmt.Errorf("nothing was rendered")
	}
	return session.LastPath(), state, nil
}

func printPreview(cmd *cobra.Command, path string, state domain.NowPlayingState) {
	bold := color.New(color.Bold).SprintFunc()
	out := cmd.OutOrStdout()

	switch state.Playback() {
	case domain.PlaybackActive:
		fmt.Fprintf(out, "%s %s - %s\n", color.GreenString("Playing:"), bold(state.TitleOr("?")), state.ArtistOr("?"))
	case domain.PlaybackIdle:
		fmt.Fprintln(out, color.YellowString("Nothing playing"))
	case domain.PlaybackError:
		fmt.Fprintf(out, "%s %s\n", color.RedString("Feed error:"), state.ErrorMessage)
	}
	fmt.Fprintf(out, "Frame written to %s\n", bold(path))
}
