package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/genricoloni/nowink/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPPoller_Poll(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantKind   domain.ErrorKind
		wantTitle  string
	}{
		{"ok", http.StatusOK, `{"title":"Song","artist":"Band","isPlaying":true}`, domain.ErrorNone, "Song"},
		{"server error", http.StatusBadGateway, `{"title":"ignored"}`, domain.ErrorTransient, ""},
		{"malformed json", http.StatusOK, `{"title":`, domain.ErrorTransient, ""},
		{"nothing playing", http.StatusOK, `{"error":"Nothing playing"}`, domain.ErrorNothingPlaying, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "kyle", r.URL.Query().Get("user"))
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p, err := NewHTTPPoller(zap.NewNop(), clockwork.NewFakeClock(), PollOptions{
				Endpoint: server.URL + "/spotify/current-track",
				User:     "kyle",
				Interval: 15 * time.Second,
				Timeout:  time.Second,
			})
			require.NoError(t, err)

			state := p.Poll(context.Background())
			assert.Equal(t, tt.wantKind, state.Error)
			assert.Equal(t, tt.wantTitle, state.TitleOr(""))
			if tt.wantKind == domain.ErrorTransient {
				assert.Nil(t, state.Title, "transient failures carry no content")
				assert.Nil(t, state.Artist)
				assert.NotEmpty(t, state.ErrorMessage)
			}
		})
	}
}

func TestHTTPPoller_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	p, err := NewHTTPPoller(zap.NewNop(), clockwork.NewFakeClock(), PollOptions{Endpoint: endpoint, Timeout: time.Second})
	require.NoError(t, err)

	state := p.Poll(context.Background())
	assert.Equal(t, domain.ErrorTransient, state.Error)
	assert.Equal(t, domain.PlaybackError, state.Playback())
}

func TestHTTPPoller_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	p, err := NewHTTPPoller(zap.NewNop(), clockwork.NewFakeClock(), PollOptions{Endpoint: server.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	state := p.Poll(context.Background())
	assert.Equal(t, domain.ErrorTransient, state.Error)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewHTTPPoller_BuildsURL(t *testing.T) {
	p, err := NewHTTPPoller(zap.NewNop(), clockwork.NewFakeClock(), PollOptions{
		Endpoint: "https://api.kyle.so/spotify/current-track",
		User:     "mr dickey",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://api.kyle.so/spotify/current-track?user=mr+dickey", p.URL())

	_, err = NewHTTPPoller(zap.NewNop(), clockwork.NewFakeClock(), PollOptions{Endpoint: "not a url"})
	assert.Error(t, err)
}
