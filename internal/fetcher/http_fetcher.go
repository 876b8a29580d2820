package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/genricoloni/nowink/internal/domain"
	"go.uber.org/zap"
)

const (
	_maxImageSize   = 10 * 1024 * 1024 // 10 MB
	_defaultTimeout = 15 * time.Second
	_userAgent      = "nowink/1.0"
)

// HTTPFetcher downloads album art over HTTP/HTTPS
type HTTPFetcher struct {
	logger  *zap.Logger
	client  *http.Client
	maxSize int64
}

// NewHTTPFetcher creates a fetcher whose every request is bounded by timeout
func NewHTTPFetcher(logger *zap.Logger, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = _defaultTimeout
	}
	return &HTTPFetcher{
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
		maxSize: _maxImageSize,
	}
}

// Fetch downloads image data from the given URL.
// All failures wrap domain.ErrArtFetch.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("%w: unsupported url scheme: %q", domain.ErrArtFetch, url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", domain.ErrArtFetch, err)
	}
	req.Header.Set("User-Agent", _userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: network error: %w", domain.ErrArtFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code: %d", domain.ErrArtFetch, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: url is not an image: %s", domain.ErrArtFetch, ct)
	}

	// One extra byte tells an oversized body apart from one exactly at the limit
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %w", domain.ErrArtFetch, err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%w: image larger than %d bytes", domain.ErrArtFetch, f.maxSize)
	}

	f.logger.Debug("Image fetched successfully", zap.Int("bytes", len(data)), zap.String("url", url))
	return data, nil
}
