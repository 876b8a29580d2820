package engine

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/genricoloni/nowink/internal/detector"
	"github.com/genricoloni/nowink/internal/domain"
	"github.com/genricoloni/nowink/internal/mono"
	"github.com/genricoloni/nowink/internal/scheduler"
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Idle policies
const (
	IdleStatus = "status"
	IdleSkip   = "skip"
)

const (
	defaultCheckInterval = 30 * time.Second
	defaultMaxFailures   = 3
)

// Options tunes the consumer loop
type Options struct {
	FullRefreshInterval time.Duration
	CheckInterval       time.Duration
	Debounce            time.Duration
	IdlePolicy          string
	ArtEnabled          bool
	MaxFailures         int
}

// Engine is the single consumer of feed snapshots. It owns the RefreshContext
// and the display session; nothing else writes to the panel.
type Engine struct {
	logger     *zap.Logger
	clock      clockwork.Clock
	opts       Options
	source     domain.Source
	poller     domain.Poller
	art        domain.ArtResolver
	composer   domain.Composer
	session    domain.Session
	scheduler  *scheduler.Scheduler
	shutdowner fx.Shutdowner

	rc        domain.RefreshContext
	latest    *domain.NowPlayingState
	needsInit bool
	failures  int

	cancel    context.CancelFunc
	done      chan struct{}
	fatalOnce sync.Once
	fatalErr  error
	mu        sync.Mutex
}

// NewEngine wires the pipeline. Exactly one of source and poller is normally
// set; art may be nil when album art is disabled and shutdowner may be nil for
// one-shot use.
func NewEngine(
	logger *zap.Logger,
	clock clockwork.Clock,
	opts Options,
	source domain.Source,
	poller domain.Poller,
	art domain.ArtResolver,
	composer domain.Composer,
	session domain.Session,
	shutdowner fx.Shutdowner,
) *Engine {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = defaultCheckInterval
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = defaultMaxFailures
	}
	if opts.IdlePolicy == "" {
		opts.IdlePolicy = IdleStatus
	}

	return &Engine{
		logger:     logger,
		clock:      clock,
		opts:       opts,
		source:     source,
		poller:     poller,
		art:        art,
		composer:   composer,
		session:    session,
		scheduler:  scheduler.New(opts.FullRefreshInterval),
		shutdowner: shutdowner,
		needsInit:  true,
	}
}

// Start launches the source and the event loop. It returns immediately.
func (e *Engine) Start(_ context.Context) error {
	e.logger.Info("Engine starting...",
		zap.Duration("fullRefreshInterval", e.scheduler.Threshold()),
		zap.Duration("checkInterval", e.opts.CheckInterval),
		zap.String("idlePolicy", e.opts.IdlePolicy))

	// fx start contexts expire after the start timeout; the loop outlives them
	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})

	if e.source != nil {
		go func() {
			err := e.source.Start(runCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				e.fatal(fmt.Errorf("source stopped: %w", err))
			}
		}()
	}

	go e.runLoop(runCtx)
	return nil
}

// runLoop serializes source events, polls and maintenance ticks.
// Push events are debounced so quick skips produce a single repaint.
func (e *Engine) runLoop(ctx context.Context) {
	defer close(e.done)

	var events <-chan domain.NowPlayingState
	if e.source != nil {
		events = e.source.Events()
	}

	var pollC <-chan time.Time
	if e.poller != nil {
		ticker := e.clock.NewTicker(e.poller.Interval())
		defer ticker.Stop()
		pollC = ticker.Chan()

		// first poll right away
		state := e.poller.Poll(ctx)
		if !e.step(ctx, &state) {
			return
		}
	}

	maintenance := e.clock.NewTicker(e.opts.CheckInterval)
	defer maintenance.Stop()

	var (
		debounce  clockwork.Timer
		debounceC <-chan time.Time
		pending   *domain.NowPlayingState
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine loop stopped")
			return

		case state, ok := <-events:
			if !ok {
				events = nil
				if err := e.source.Err(); err != nil {
					e.fatal(err)
					return
				}
				e.logger.Info("Source events channel closed")
				continue
			}

			if state.Error == domain.ErrorFatal || e.opts.Debounce <= 0 {
				if !e.step(ctx, &state) {
					return
				}
				continue
			}

			e.logger.Debug("Event received, debouncing...",
				zap.String("title", state.TitleOr("")),
				zap.String("artist", state.ArtistOr("")))
			pending = &state
			if debounce != nil {
				debounce.Stop()
			}
			debounce = e.clock.NewTimer(e.opts.Debounce)
			debounceC = debounce.Chan()

		case <-debounceC:
			debounceC = nil
			if pending != nil {
				state := *pending
				pending = nil
				if !e.step(ctx, &state) {
					return
				}
			}

		case <-pollC:
			state := e.poller.Poll(ctx)
			if !e.step(ctx, &state) {
				return
			}

		case <-maintenance.Chan():
			if !e.step(ctx, nil) {
				return
			}
		}
	}
}

// step runs one cycle and reports whether the loop should continue
func (e *Engine) step(ctx context.Context, state *domain.NowPlayingState) bool {
	if err := e.Handle(ctx, state); err != nil {
		e.fatal(err)
		return false
	}
	return true
}

// Handle runs one refresh cycle. A nil state is a maintenance tick: it
// repaints when a full refresh is due or a failed write is pending.
// Only fatal conditions are returned as errors.
func (e *Engine) Handle(ctx context.Context, state *domain.NowPlayingState) error {
	now := e.clock.Now()

	if state != nil {
		if state.Error == domain.ErrorFatal {
			return fmt.Errorf("%w: %s", domain.ErrFeedTerminated, state.ErrorMessage)
		}
		if state.Playback() == domain.PlaybackIdle && e.opts.IdlePolicy == IdleSkip {
			e.logger.Debug("Nothing playing, keeping last frame")
			return nil
		}
		latest := *state
		e.latest = &latest
	}

	// a maintenance tick re-checks the newest state, which is still
	// uncommitted when the last write failed
	if e.latest == nil {
		return nil
	}
	next := *e.latest
	playback := next.Playback()

	changed := detector.Changed(e.rc.Previous, next)
	mode := e.scheduler.Decide(changed, e.rc.LastFullRefreshAt, now)
	if mode == domain.RefreshPartial && e.needsInit {
		mode = domain.RefreshFull
	}
	if mode == domain.RefreshSkip {
		return nil
	}

	art := domain.ArtAbsent("")
	if playback == domain.PlaybackActive && next.ImageURL != nil && e.opts.ArtEnabled && e.art != nil {
		art = e.art.Resolve(ctx, *next.ImageURL)
	}

	frame := e.composer.Compose(next, art)

	if err := e.write(mode, frame); err != nil {
		e.needsInit = true
		e.failures++
		e.logger.Error("Display write failed",
			zap.Stringer("mode", mode),
			zap.Int("consecutiveFailures", e.failures),
			zap.Error(err))
		if e.failures >= e.opts.MaxFailures {
			return fmt.Errorf("%d consecutive display failures: %w", e.failures, err)
		}
		return nil
	}

	e.failures = 0
	if mode == domain.RefreshFull {
		e.needsInit = false
	}
	e.rc.Commit(next, mode, now)

	e.logger.Info("Display updated",
		zap.Stringer("mode", mode),
		zap.Stringer("playback", playback),
		zap.String("title", next.TitleOr("")),
		zap.String("artist", next.ArtistOr("")),
		zap.Bool("art", art.Found))
	return nil
}

func (e *Engine) write(mode domain.RefreshMode, frame domain.Frame) error {
	if mode == domain.RefreshPartial {
		return e.session.DisplayPartial(frame)
	}

	if err := e.session.Init(); err != nil {
		return err
	}
	if err := e.session.Clear(color.White); err != nil {
		return err
	}
	blank := domain.Frame{Bitmap: mono.New(frame.Bitmap.Bounds()), Rotated: frame.Rotated}
	if err := e.session.DisplayPartialBase(blank); err != nil {
		return err
	}
	return e.session.DisplayFull(frame)
}

// RefreshContext returns a copy of the committed refresh state
func (e *Engine) RefreshContext() domain.RefreshContext {
	return e.rc
}

// Err returns the fatal error that ended the loop, if any
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fatalErr
}

func (e *Engine) fatal(err error) {
	e.fatalOnce.Do(func() {
		e.mu.Lock()
		e.fatalErr = err
		e.mu.Unlock()

		e.logger.Error("Fatal error, shutting down", zap.Error(err))
		if e.shutdowner == nil {
			return
		}
		if shutdownErr := e.shutdowner.Shutdown(fx.ExitCode(1)); shutdownErr != nil {
			e.logger.Error("Failed to request shutdown", zap.Error(shutdownErr))
		}
	})
}

// Stop ends the loop, stops the source and puts the panel to sleep on a
// blank screen. It runs on every exit path, including fatal ones.
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("Engine stopping...")

	if e.cancel != nil {
		e.cancel()
		select {
		case <-e.done:
		case <-ctx.Done():
			// the loop may still be writing, so the panel is left as is
			e.logger.Warn("Refresh loop did not exit in time, panel release skipped", zap.Error(ctx.Err()))
			return ctx.Err()
		}
	}

	var err error
	if e.source != nil {
		err = multierr.Append(err, e.source.Stop(ctx))
	}
	err = multierr.Append(err, e.Release())

	e.rc = domain.RefreshContext{}
	e.latest = nil
	e.logger.Info("Engine stopped")
	return err
}

// Release blanks the panel and puts it into deep sleep. Every step runs even
// when an earlier one fails.
func (e *Engine) Release() error {
	return multierr.Combine(
		e.session.Init(),
		e.session.Clear(color.White),
		e.session.Sleep(),
		e.session.Close(),
	)
}
