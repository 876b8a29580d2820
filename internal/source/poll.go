package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/genricoloni/nowink/internal/domain"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	_maxPayloadSize     = 1 << 20 // 1 MiB
	_defaultPollTimeout = 10 * time.Second
	_userAgent          = "nowink/1.0"
)

// PollOptions configures an HTTPPoller
type PollOptions struct {
	Endpoint string
	User     string
	Interval time.Duration
	Timeout  time.Duration
}

// HTTPPoller fetches the current track with a bounded GET request
type HTTPPoller struct {
	logger   *zap.Logger
	client   *http.Client
	clock    clockwork.Clock
	url      string
	interval time.Duration
}

// NewHTTPPoller validates the endpoint and builds the request URL
func NewHTTPPoller(logger *zap.Logger, clock clockwork.Clock, opts PollOptions) (*HTTPPoller, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid poll endpoint %q", opts.Endpoint)
	}
	if opts.User != "" {
		q := u.Query()
		q.Set("user", opts.User)
		u.RawQuery = q.Encode()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = _defaultPollTimeout
	}

	return &HTTPPoller{
		logger:   logger,
		client:   &http.Client{Timeout: opts.Timeout},
		clock:    clock,
		url:      u.String(),
		interval: opts.Interval,
	}, nil
}

// Interval is the configured polling period
func (p *HTTPPoller) Interval() time.Duration {
	return p.interval
}

// URL is the fully built request URL
func (p *HTTPPoller) URL() string {
	return p.url
}

// Poll performs one request. Failures are returned as transient states.
func (p *HTTPPoller) Poll(ctx context.Context) domain.NowPlayingState {
	state, err := p.poll(ctx)
	if err != nil {
		p.logger.Warn("Now playing poll failed", zap.String("url", p.url), zap.Error(err))
		return TransientState(err.Error(), p.clock.Now())
	}

	p.logger.Debug("Now playing polled",
		zap.String("title", state.TitleOr("")),
		zap.Bool("isPlaying", state.IsPlaying),
		zap.Stringer("error", state.Error))
	return state
}

func (p *HTTPPoller) poll(ctx context.Context) (domain.NowPlayingState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return domain.NowPlayingState{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", _userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.NowPlayingState{}, fmt.Errorf("%w: network error: %w", domain.ErrTransientFeed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NowPlayingState{}, fmt.Errorf("%w: unexpected status code: %d", domain.ErrTransientFeed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, _maxPayloadSize))
	if err != nil {
		return domain.NowPlayingState{}, fmt.Errorf("%w: failed to read body: %w", domain.ErrTransientFeed, err)
	}

	return ParsePayload(body, p.clock.Now())
}
