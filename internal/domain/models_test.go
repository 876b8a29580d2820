package domain

import (
	"testing"
	"time"
)

func TestPlayback(t *testing.T) {
	title := StringPtr("Song")

	tests := []struct {
		name  string
		state NowPlayingState
		want  Playback
	}{
		{"playing", NowPlayingState{Title: title, IsPlaying: true}, PlaybackActive},
		{"paused", NowPlayingState{Title: title, IsPlaying: false}, PlaybackIdle},
		{"nothing playing", NowPlayingState{Error: ErrorNothingPlaying, IsPlaying: true}, PlaybackIdle},
		{"transient without content", NowPlayingState{Error: ErrorTransient}, PlaybackError},
		{"transient with title", NowPlayingState{Title: title, IsPlaying: true, Error: ErrorTransient}, PlaybackActive},
		{"fatal", NowPlayingState{Title: title, IsPlaying: true, Error: ErrorFatal}, PlaybackError},
		{"empty", NowPlayingState{}, PlaybackIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Playback(); got != tt.want {
				t.Errorf("Playback() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRefreshContextCommit(t *testing.T) {
	var rc RefreshContext
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	rc.Commit(NowPlayingState{Title: StringPtr("A")}, RefreshFull, t0)
	if !rc.LastFullRefreshAt.Equal(t0) {
		t.Fatalf("expected last full refresh %v, got %v", t0, rc.LastFullRefreshAt)
	}

	rc.Commit(NowPlayingState{Title: StringPtr("B")}, RefreshPartial, t0.Add(time.Minute))
	if !rc.LastFullRefreshAt.Equal(t0) {
		t.Errorf("partial commit must not move last full refresh")
	}
	if rc.Previous == nil || rc.Previous.TitleOr("") != "B" {
		t.Errorf("expected previous title B, got %+v", rc.Previous)
	}

	// A full commit stamped earlier than the recorded one is ignored
	rc.Commit(NowPlayingState{}, RefreshFull, t0.Add(-time.Hour))
	if !rc.LastFullRefreshAt.Equal(t0) {
		t.Errorf("last full refresh moved backwards to %v", rc.LastFullRefreshAt)
	}
}

func TestCommitCopiesState(t *testing.T) {
	var rc RefreshContext
	state := NowPlayingState{IsPlaying: true}
	rc.Commit(state, RefreshPartial, time.Now())

	state.IsPlaying = false
	if !rc.Previous.IsPlaying {
		t.Error("committed state must not alias the caller's value")
	}
}
