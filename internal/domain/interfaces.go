package domain

import (
	"context"
	"image/color"
	"time"
)

// Source delivers NowPlayingState events pushed by a feed.
// Implementations close the Events channel when they terminate.
type Source interface {
	// Start begins receiving events.
	// It should block until context is cancelled or the source terminates
	Start(ctx context.Context) error

	// Stop gracefully stops the source
	Stop(ctx context.Context) error

	// Events returns a read-only channel of feed snapshots
	Events() <-chan NowPlayingState

	// Err reports why the Events channel was closed, nil on a clean stop
	Err() error
}

// Poller retrieves a snapshot on demand. Failures are reported in-band
// through NowPlayingState.Error, never as a Go error.
type Poller interface {
	Poll(ctx context.Context) NowPlayingState
	Interval() time.Duration
}

// Fetcher defines the interface for retrieving album artwork
//
//go:generate mockgen -destination=mocks/fetcher_mock.go -package=mocks github.com/genricoloni/nowink/internal/domain Fetcher
type Fetcher interface {
	// Fetch downloads image data from a URL.
	// Returns the raw image bytes or an error
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ArtResolver maps an image URL to a display-ready bitmap.
// Every failure degrades to an Absent resolution.
//
//go:generate mockgen -destination=mocks/art_resolver_mock.go -package=mocks github.com/genricoloni/nowink/internal/domain ArtResolver
type ArtResolver interface {
	Resolve(ctx context.Context, url string) ArtResolution
}

// Composer renders a state (and optional art) into a panel frame
type Composer interface {
	Compose(state NowPlayingState, art ArtResolution) Frame
}

// Session is the exclusive handle on the e-paper panel.
// Errors wrap ErrDisplayHardware.
//
//go:generate mockgen -destination=mocks/session_mock.go -package=mocks github.com/genricoloni/nowink/internal/domain Session
type Session interface {
	// Init wakes the controller and prepares a full-refresh write
	Init() error

	// Clear fills the whole panel with a single colour
	Clear(c color.Color) error

	// DisplayFull writes a frame with a full (flashing) refresh
	DisplayFull(frame Frame) error

	// DisplayPartial writes a frame updating only changed regions
	DisplayPartial(frame Frame) error

	// DisplayPartialBase sets the reference image partial updates diff against
	DisplayPartialBase(frame Frame) error

	// Sleep puts the controller into deep sleep
	Sleep() error

	// Close releases the underlying bus
	Close() error
}

// Config defines the interface for application configuration
type Config interface {
	GetSourceMode() string
	GetEndpoint() string
	GetWebSocketEndpoint() string
	GetUser() string
	GetPollInterval() time.Duration
	GetPollTimeout() time.Duration
	GetReconnectBase() time.Duration
	GetReconnectMaxDelay() time.Duration
	GetReconnectMaxAttempts() int
	GetDebounce() time.Duration

	GetFullRefreshInterval() time.Duration
	GetCheckInterval() time.Duration

	GetArtEnabled() bool
	GetArtSize() int
	GetArtTimeout() time.Duration
	GetCornerRadius() int
	GetDither() string

	GetCacheDir() string
	GetCachePolicy() string
	GetCacheMemoryEntries() int

	GetDisplayDriver() string
	GetDisplayWidth() int
	GetDisplayHeight() int
	GetRotate180() bool
	GetPreviewDir() string
	GetMaxHardwareFailures() int

	GetHeader() string
	GetIdlePolicy() string
	GetFontPath() string
}
