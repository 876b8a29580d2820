package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/nowink/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	_defaultBaseDelay   = 2 * time.Second
	_defaultMaxDelay    = 60 * time.Second
	_defaultMaxAttempts = 10
	_eventBuffer        = 16
)

// ConnState is the push connection state machine
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateTerminated
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Conn is the read side of an established socket
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens push connections.
//
//go:generate mockgen -destination=mocks/push_mock.go -package=mocks github.com/genricoloni/nowink/internal/source Dialer,Conn
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebSocketDialer is the gorilla/websocket backed Dialer
type WebSocketDialer struct {
	dialer *websocket.Dialer
	header http.Header
}

// NewWebSocketDialer creates a dialer with a bounded handshake
func NewWebSocketDialer(handshakeTimeout time.Duration) *WebSocketDialer {
	header := http.Header{}
	header.Set("User-Agent", _userAgent)
	return &WebSocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		header: header,
	}
}

// Dial performs the websocket handshake
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, d.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, err
	}
	return conn, nil
}

// PushOptions configures a WebSocketSource
type PushOptions struct {
	Endpoint    string
	User        string
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// PushURL derives the socket URL: <endpoint>/ws?user=<id>
func PushURL(endpoint, user string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid push endpoint %q", endpoint)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported push scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	if user != "" {
		q := u.Query()
		q.Set("user", user)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Backoff is the wait before reconnect attempt n (1-based): base*n capped at maxDelay
func Backoff(attempt int, base, maxDelay time.Duration) time.Duration {
	d := base * time.Duration(attempt)
	if d > maxDelay || d <= 0 {
		return maxDelay
	}
	return d
}

// WebSocketSource keeps a persistent push connection and reconnects with
// linear backoff. Once reconnect attempts are exhausted it emits a fatal
// state, closes Events and cannot be restarted.
type WebSocketSource struct {
	logger *zap.Logger
	dialer Dialer
	clock  clockwork.Clock
	opts   PushOptions
	url    string
	events chan domain.NowPlayingState

	mu              sync.Mutex
	state           ConnState
	running         bool
	cancel          context.CancelFunc
	done            chan struct{}
	err             error
	lastDropWarning time.Time
}

// NewWebSocketSource validates options and builds the socket URL
func NewWebSocketSource(logger *zap.Logger, dialer Dialer, clock clockwork.Clock, opts PushOptions) (*WebSocketSource, error) {
	u, err := PushURL(opts.Endpoint, opts.User)
	if err != nil {
		return nil, err
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = _defaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = _defaultMaxDelay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = _defaultMaxAttempts
	}

	return &WebSocketSource{
		logger: logger,
		dialer: dialer,
		clock:  clock,
		opts:   opts,
		url:    u,
		events: make(chan domain.NowPlayingState, _eventBuffer),
		done:   make(chan struct{}),
	}, nil
}

// Start runs the connection loop and blocks until the context is cancelled
// or the source terminates
func (s *WebSocketSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return domain.ErrFeedTerminated
	}
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("Push source started", zap.String("url", s.url))
	go s.run(runCtx)

	<-s.done
	if err := s.Err(); err != nil {
		return err
	}
	return runCtx.Err()
}

// Stop cancels the connection loop and waits for it to exit
func (s *WebSocketSource) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("Push source shutdown complete")
	return nil
}

// Events returns the feed snapshots. The channel is closed when the loop exits.
func (s *WebSocketSource) Events() <-chan domain.NowPlayingState {
	return s.events
}

// Err is domain.ErrFeedTerminated once reconnects are exhausted
func (s *WebSocketSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// State returns the current connection state
func (s *WebSocketSource) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *WebSocketSource) setState(state ConnState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *WebSocketSource) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)

	attempt := 0
	for {
		s.setState(StateConnecting)
		conn, err := s.dialer.Dial(ctx, s.url)
		if err == nil {
			attempt = 0
			s.setState(StateConnected)
			s.logger.Info("Push feed connected")
			err = s.readLoop(ctx, conn)
		}
		s.setState(StateDisconnected)

		if ctx.Err() != nil {
			return
		}

		attempt++
		if attempt > s.opts.MaxAttempts {
			s.terminate(ctx, err)
			return
		}

		delay := Backoff(attempt, s.opts.BaseDelay, s.opts.MaxDelay)
		s.logger.Warn("Push feed disconnected, reconnecting",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", s.opts.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := s.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
	}
}

// readLoop delivers messages until the connection fails or ctx is cancelled
func (s *WebSocketSource) readLoop(ctx context.Context, conn Conn) error {
	var once sync.Once
	closeConn := func() {
		once.Do(func() {
			if err := conn.Close(); err != nil {
				s.logger.Debug("Failed to close push connection", zap.Error(err))
			}
		})
	}
	defer closeConn()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-stop:
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrFeedDisconnected, err)
		}
		if messageType != websocket.TextMessage {
			s.logger.Warn("Dropping non-text push frame", zap.Int("type", messageType))
			continue
		}

		state, err := ParsePayload(data, s.clock.Now())
		if err != nil {
			s.logger.Warn("Dropping malformed push payload", zap.Error(err))
			continue
		}
		s.emit(state)
	}
}

func (s *WebSocketSource) terminate(ctx context.Context, cause error) {
	s.mu.Lock()
	s.state = StateTerminated
	s.err = domain.ErrFeedTerminated
	s.mu.Unlock()

	msg := "push feed terminated"
	if cause != nil && !errors.Is(cause, context.Canceled) {
		msg = fmt.Sprintf("push feed terminated: %v", cause)
	}
	s.logger.Error("Reconnect attempts exhausted",
		zap.Int("maxAttempts", s.opts.MaxAttempts),
		zap.Error(cause))

	// The fatal state must reach the consumer, so this send blocks
	select {
	case s.events <- FatalState(msg, s.clock.Now()):
	case <-ctx.Done():
	}
}

// emit delivers state, evicting the oldest buffered snapshot when the
// consumer lags. run is the only sender.
func (s *WebSocketSource) emit(state domain.NowPlayingState) {
	s.logger.Debug("Push payload received",
		zap.String("title", state.TitleOr("")),
		zap.Bool("isPlaying", state.IsPlaying))

	select {
	case s.events <- state:
		return
	default:
	}

	select {
	case <-s.events:
		s.logStaleDropWarning()
	default:
	}
	select {
	case s.events <- state:
	default:
		s.logStaleDropWarning()
	}
}

// logStaleDropWarning is rate limited to one warning per 5 seconds
func (s *WebSocketSource) logStaleDropWarning() {
	s.mu.Lock()
	defer s.mu.Unlock()

	const warningInterval = 5 * time.Second
	now := s.clock.Now()
	if now.Sub(s.lastDropWarning) >= warningInterval {
		s.logger.Warn("Events channel full, dropping stale push payload")
		s.lastDropWarning = now
	}
}
