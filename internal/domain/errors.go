package domain

import "errors"

var (
	// ErrTransientFeed is a recoverable feed failure
	ErrTransientFeed = errors.New("transient feed error")
	// ErrNothingPlaying means the feed reported no playback
	ErrNothingPlaying = errors.New("nothing playing")
	// ErrArtFetch covers every album-art download or decode failure
	ErrArtFetch = errors.New("album art unavailable")
	// ErrDisplayHardware is returned by Session implementations on SPI/GPIO failures
	ErrDisplayHardware = errors.New("display hardware error")
	// ErrFeedDisconnected marks a dropped push connection
	ErrFeedDisconnected = errors.New("feed disconnected")
	// ErrFeedTerminated is reported once reconnect attempts are exhausted
	ErrFeedTerminated = errors.New("feed terminated")
)
