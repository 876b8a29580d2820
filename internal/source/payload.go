// Package source adapts remote and local playback feeds into NowPlayingState values.
package source

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/genricoloni/nowink/internal/domain"
)

// payload is the JSON schema shared by the poll endpoint and the push socket.
// Unknown fields are ignored.
type payload struct {
	Title      *string         `json:"title"`
	Artist     *string         `json:"artist"`
	Album      *string         `json:"album"`
	ImageURL   *string         `json:"imageUrl"`
	IsPlaying  bool            `json:"isPlaying"`
	Error      json.RawMessage `json:"error"`
	ErrorKind  string          `json:"errorKind"`
	ProgressMs *int            `json:"progressMs"`
}

var nothingPlayingHints = []string{"nothing playing", "not playing", "no track", "not currently playing"}

// ParsePayload decodes one feed message. Malformed JSON returns an error
// wrapping domain.ErrTransientFeed.
func ParsePayload(data []byte, receivedAt time.Time) (domain.NowPlayingState, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.NowPlayingState{}, fmt.Errorf("%w: malformed payload: %w", domain.ErrTransientFeed, err)
	}

	state := domain.NowPlayingState{
		Title:      p.Title,
		Artist:     p.Artist,
		Album:      p.Album,
		ImageURL:   p.ImageURL,
		IsPlaying:  p.IsPlaying,
		ProgressMs: p.ProgressMs,
		ReceivedAt: receivedAt,
	}

	msg, hasError := errorMessage(p.Error)
	switch {
	case p.ErrorKind != "":
		state.Error = parseErrorKind(p.ErrorKind)
		state.ErrorMessage = msg
	case hasError:
		state.Error = classify(msg)
		state.ErrorMessage = msg
	}
	return state, nil
}

// TransientState is the snapshot reported when the feed could not be read
func TransientState(msg string, at time.Time) domain.NowPlayingState {
	return domain.NowPlayingState{Error: domain.ErrorTransient, ErrorMessage: msg, ReceivedAt: at}
}

// FatalState is the last snapshot emitted by a terminated source
func FatalState(msg string, at time.Time) domain.NowPlayingState {
	return domain.NowPlayingState{Error: domain.ErrorFatal, ErrorMessage: msg, ReceivedAt: at}
}

// errorMessage extracts the error field, which may be a string, null or any JSON value
func errorMessage(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "false" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(raw), true
}

func parseErrorKind(kind string) domain.ErrorKind {
	switch strings.ToLower(kind) {
	case "none":
		return domain.ErrorNone
	case "nothingplaying", "nothing_playing":
		return domain.ErrorNothingPlaying
	case "fatal":
		return domain.ErrorFatal
	default:
		return domain.ErrorTransient
	}
}

func classify(msg string) domain.ErrorKind {
	lower := strings.ToLower(msg)
	for _, hint := range nothingPlayingHints {
		if strings.Contains(lower, hint) {
			return domain.ErrorNothingPlaying
		}
	}
	return domain.ErrorTransient
}
