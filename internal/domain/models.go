package domain

import (
	"image"
	"time"
)

// ErrorKind classifies a feed error attached to a NowPlayingState
type ErrorKind int

const (
	// ErrorNone means the payload carried no error
	ErrorNone ErrorKind = iota
	// ErrorTransient is a recoverable feed failure (network, HTTP status, bad JSON)
	ErrorTransient
	// ErrorNothingPlaying means the feed is healthy but nothing is playing
	ErrorNothingPlaying
	// ErrorFatal terminates the daemon
	ErrorFatal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case ErrorTransient:
		return "transient"
	case ErrorNothingPlaying:
		return "nothingPlaying"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Playback is the derived rendering state of a NowPlayingState
type Playback int

const (
	// PlaybackActive renders track text and album art
	PlaybackActive Playback = iota
	// PlaybackIdle renders the "nothing playing" status line
	PlaybackIdle
	// PlaybackError renders the error status line
	PlaybackError
)

func (p Playback) String() string {
	switch p {
	case PlaybackActive:
		return "active"
	case PlaybackIdle:
		return "idle"
	case PlaybackError:
		return "error"
	default:
		return "unknown"
	}
}

// NowPlayingState is one snapshot of the remote (or local) playback feed.
// Optional text fields are nil when absent, which is distinct from empty.
type NowPlayingState struct {
	Title     *string
	Artist    *string
	Album     *string
	ImageURL  *string
	IsPlaying bool
	Error     ErrorKind

	// Informational only, never compared
	ErrorMessage string
	ProgressMs   *int
	ReceivedAt   time.Time
}

// HasError reports whether the state carries any feed error
func (s NowPlayingState) HasError() bool {
	return s.Error != ErrorNone
}

// Playback derives how the state should be rendered
func (s NowPlayingState) Playback() Playback {
	switch s.Error {
	case ErrorNothingPlaying:
		return PlaybackIdle
	case ErrorFatal:
		return PlaybackError
	case ErrorTransient:
		if s.Title == nil {
			return PlaybackError
		}
	}
	if !s.IsPlaying {
		return PlaybackIdle
	}
	return PlaybackActive
}

// TitleOr returns the title or def when absent
func (s NowPlayingState) TitleOr(def string) string { return deref(s.Title, def) }

// ArtistOr returns the artist or def when absent
func (s NowPlayingState) ArtistOr(def string) string { return deref(s.Artist, def) }

// AlbumOr returns the album or def when absent
func (s NowPlayingState) AlbumOr(def string) string { return deref(s.Album, def) }

// ImageURLOr returns the image URL or def when absent
func (s NowPlayingState) ImageURLOr(def string) string { return deref(s.ImageURL, def) }

func deref(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

// StringPtr is a convenience for building states with literal values
func StringPtr(s string) *string {
	return &s
}

// RefreshMode is the kind of panel write chosen for a cycle
type RefreshMode int

const (
	// RefreshSkip leaves the panel untouched
	RefreshSkip RefreshMode = iota
	// RefreshPartial updates only changed regions
	RefreshPartial
	// RefreshFull rewrites the whole panel to clear ghosting
	RefreshFull
)

func (m RefreshMode) String() string {
	switch m {
	case RefreshSkip:
		return "skip"
	case RefreshPartial:
		return "partial"
	case RefreshFull:
		return "full"
	default:
		return "unknown"
	}
}

// RefreshContext is the state carried across cycles by the engine.
// Only the engine mutates it.
type RefreshContext struct {
	Previous          *NowPlayingState
	LastFullRefreshAt time.Time
}

// Commit records a successful panel write. LastFullRefreshAt never moves backwards.
func (c *RefreshContext) Commit(state NowPlayingState, mode RefreshMode, at time.Time) {
	committed := state
	c.Previous = &committed
	if mode == RefreshFull && at.After(c.LastFullRefreshAt) {
		c.LastFullRefreshAt = at
	}
}

// Frame is a composed 1-bit image ready for the panel
type Frame struct {
	Bitmap  *image.Paletted
	Rotated bool
}

// CacheEntry is a processed album-art bitmap keyed by the digest of its URL
type CacheEntry struct {
	URLHash   string
	Bitmap    *image.Paletted
	CreatedAt time.Time
}

// ArtResolution is the outcome of an art lookup. Found is false for Absent.
type ArtResolution struct {
	URL    string
	Bitmap *image.Paletted
	Found  bool
}

// ArtAbsent is the resolution used whenever no bitmap is available
func ArtAbsent(url string) ArtResolution {
	return ArtResolution{URL: url}
}
