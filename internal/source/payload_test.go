package source

import (
	"errors"
	"testing"
	"time"

	"github.com/genricoloni/nowink/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, s domain.NowPlayingState)
	}{
		{
			name: "full track",
			body: `{"title":"Song","artist":"Band","album":"LP","imageUrl":"https://img/x","isPlaying":true,"progressMs":1200}`,
			check: func(t *testing.T, s domain.NowPlayingState) {
				assert.Equal(t, "Song", s.TitleOr(""))
				assert.Equal(t, "Band", s.ArtistOr(""))
				assert.Equal(t, "LP", s.AlbumOr(""))
				assert.Equal(t, "https://img/x", s.ImageURLOr(""))
				assert.True(t, s.IsPlaying)
				assert.Equal(t, domain.ErrorNone, s.Error)
				assert.Equal(t, domain.PlaybackActive, s.Playback())
				assert.Equal(t, now, s.ReceivedAt)
			},
		},
		{
			name: "title only",
			body: `{"title":"Solo","isPlaying":true}`,
			check: func(t *testing.T, s domain.NowPlayingState) {
				assert.Equal(t, "Solo", s.TitleOr(""))
				assert.Nil(t, s.Artist)
				assert.Nil(t, s.Album)
				assert.Nil(t, s.ImageURL)
			},
		},
		{
			name: "empty string is not absent",
			body: `{"title":"","isPlaying":false}`,
			check: func(t *testing.T, s domain.NowPlayingState) {
				require.NotNil(t, s.Title)
				assert.Equal(t, "", *s.Title)
			},
		},
		{
			name: "unknown fields ignored",
			body: `{"title":"T","device":{"name":"phone"},"isPlaying":true}`,
			check: func(t *testing.T, s domain.NowPlayingState) {
				assert.Equal(t, "T", s.TitleOr(""))
			},
		},
		{
			name: "error text",
			body: `{"error":"upstream returned 502"}`,
			check: func(t *testing.T, s domain.NowPlayingState) {
				assert.Equal(t, domain.ErrorTransient, s.Error)
				assert.Equal(t, "upstream returned 502", s.ErrorMessage)
				assert.Equal(t, domain.PlaybackError, s.Playback())
			},
		},
		{
			name: "nothing playing text",
			body: `{"error":"User is not currently playing anything"}`,
			check: func(t *testing.T, s domain.NowPlayingState) {
				assert.Equal(t, domain.ErrorNothingPlaying, s.Error)
				assert.Equal(t, domain.PlaybackIdle, s.Playback())
			},
		},
		{
			name: "explicit error kind wins",
			body: `{"error":"nothing playing","errorKind":"fatal"}`,
			check: func(t *testing.T, s domain.NowPlayingState) {
				assert.Equal(t, domain.ErrorFatal, s.Error)
			},
		},
		{
			name: "null error",
			body: `{"title":"T","isPlaying":true,"error":null}`,
			check: func(t *testing.T, s domain.NowPlayingState) {
				assert.False(t, s.HasError())
			},
		},
		{
			name: "structured error",
			body: `{"error":{"status":401}}`,
			check: func(t *testing.T, s domain.NowPlayingState) {
				assert.Equal(t, domain.ErrorTransient, s.Error)
				assert.Equal(t, `{"status":401}`, s.ErrorMessage)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParsePayload([]byte(tt.body), now)
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestParsePayload_Malformed(t *testing.T) {
	for _, body := range []string{``, `{`, `[1,2]`, `{"title":42}`} {
		_, err := ParsePayload([]byte(body), time.Now())
		require.Error(t, err, "body %q", body)
		assert.True(t, errors.Is(err, domain.ErrTransientFeed))
	}
}
