// Package mpris is a local Source reading the desktop's MPRIS media players
// over the D-Bus session bus.
package mpris

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/nowink/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	playerPrefix   = "org.mpris.MediaPlayer2."
	objectPath     = "/org/mpris/MediaPlayer2"
	metadataProp   = "org.mpris.MediaPlayer2.Player.Metadata"
	statusProp     = "org.mpris.MediaPlayer2.Player.PlaybackStatus"
	playerIface    = "org.mpris.MediaPlayer2.Player"
	propsChanged   = "org.freedesktop.DBus.Properties.PropertiesChanged"
	ownerChanged   = "org.freedesktop.DBus.NameOwnerChanged"
	eventBufferLen = 10
)

var errStopped = errors.New("mpris source already stopped")

// Source emits a NowPlayingState whenever an MPRIS player changes track or status
type Source struct {
	logger          *zap.Logger
	events          chan domain.NowPlayingState
	connect         func() (DBusClient, error)
	mu              sync.RWMutex
	running         bool
	stopped         bool
	cancel          context.CancelFunc
	conn            DBusClient
	lastDropWarning time.Time
	wg              sync.WaitGroup    // producer goroutines
	playerNames     map[string]string // unique bus name (:1.45) -> well-known name
}

// NewSource creates an MPRIS source bound to the session bus
func NewSource(logger *zap.Logger) *Source {
	return &Source{
		logger:      logger,
		events:      make(chan domain.NowPlayingState, eventBufferLen),
		connect:     ConnectSessionBus,
		playerNames: make(map[string]string),
	}
}

// Start connects to the bus, emits the state of already running players and
// blocks until the context is cancelled
func (m *Source) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return errStopped
	}
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true

	sourceCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	conn, err := m.connect()
	if err != nil {
		m.logger.Error("Failed to connect to session bus", zap.Error(err))
		m.mu.Lock()
		defer m.mu.Unlock()
		m.running = false
		m.cancel = nil
		cancel()
		return fmt.Errorf("session bus connection failed: %w", err)
	}

	// Stopped while connecting
	select {
	case <-sourceCtx.Done():
		if err := conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
		return sourceCtx.Err()
	default:
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	m.wg.Add(1)
	func() {
		defer m.wg.Done()
		if err := m.detectExistingPlayers(); err != nil {
			m.logger.Warn("Failed to detect existing players", zap.Error(err))
		}
	}()

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(objectPath),
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		m.logger.Error("Failed to add match signal", zap.Error(err))
		return fmt.Errorf("failed to add match signal: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		// players started later will not be mapped to a name
		m.logger.Warn("Failed to add NameOwnerChanged match signal", zap.Error(err))
	}

	m.wg.Add(1)
	go m.monitorSignals(sourceCtx)

	m.logger.Info("MPRIS source started")
	<-sourceCtx.Done()
	return sourceCtx.Err()
}

// Stop cancels monitoring, closes Events and the bus connection
func (m *Source) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.running = false
	m.stopped = true
	m.mu.Unlock()

	// producers must be gone before the channel is closed
	m.wg.Wait()
	close(m.events)

	m.mu.Lock()
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
	}
	m.mu.Unlock()

	m.logger.Info("MPRIS source shutdown complete")
	return nil
}

// Events returns the player snapshots
func (m *Source) Events() <-chan domain.NowPlayingState {
	return m.events
}

// Err is always nil: the bus source never terminates on its own
func (m *Source) Err() error {
	return nil
}

func (m *Source) detectExistingPlayers() error {
	names, err := m.conn.ListNames()
	if err != nil {
		return fmt.Errorf("failed to list bus names: %w", err)
	}

	playerCount := 0
	for _, name := range names {
		if !strings.HasPrefix(name, playerPrefix) {
			continue
		}
		playerCount++
		m.logger.Info("Detected MPRIS player", zap.String("name", name))

		if uniqueName, err := m.conn.GetNameOwner(name); err == nil {
			m.mu.Lock()
			m.playerNames[uniqueName] = name
			m.mu.Unlock()
		}

		if err := m.fetchPlayerState(name); err != nil {
			m.logger.Warn("Failed to fetch initial metadata",
				zap.String("player", name),
				zap.Error(err))
		}
	}

	m.logger.Info("Player detection complete", zap.Int("count", playerCount))
	return nil
}

// fetchPlayerState reads Metadata and PlaybackStatus of one player and emits them
func (m *Source) fetchPlayerState(playerName string) error {
	variant, err := m.conn.GetProperty(playerName, objectPath, metadataProp)
	if err != nil {
		return fmt.Errorf("failed to get metadata: %w", err)
	}

	// Idle players may report nil or a non-map value
	metadata, ok := variant.Value().(map[string]dbus.Variant)
	if !ok {
		m.logger.Debug("Metadata variant is not a map, skipping", zap.String("player", playerName))
		return nil
	}

	statusVariant, err := m.conn.GetProperty(playerName, objectPath, statusProp)
	if err != nil {
		return fmt.Errorf("failed to get playback status: %w", err)
	}
	status, ok := statusVariant.Value().(string)
	if !ok {
		return fmt.Errorf("invalid playback status format")
	}

	m.emit(m.toState(metadata, status), playerName)
	return nil
}

func (m *Source) monitorSignals(ctx context.Context) {
	defer m.wg.Done()

	signals := make(chan *dbus.Signal, 10)
	m.conn.Signal(signals)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			if sig == nil {
				continue
			}
			if sig.Name == ownerChanged {
				m.handleNameOwnerChanged(sig)
			} else {
				m.handleSignal(sig)
			}
		}
	}
}

// handleNameOwnerChanged keeps playerNames in sync as players come and go
func (m *Source) handleNameOwnerChanged(sig *dbus.Signal) {
	if len(sig.Body) < 3 {
		return
	}
	name, ok := sig.Body[0].(string)
	if !ok || !strings.HasPrefix(name, playerPrefix) {
		return
	}
	oldOwner, _ := sig.Body[1].(string)
	newOwner, _ := sig.Body[2].(string)

	switch {
	case newOwner != "" && oldOwner == "":
		m.mu.Lock()
		m.playerNames[newOwner] = name
		m.mu.Unlock()

		m.logger.Info("New MPRIS player detected", zap.String("player", name), zap.String("unique", newOwner))
		if err := m.fetchPlayerState(name); err != nil {
			m.logger.Warn("Failed to fetch metadata from new player", zap.String("player", name), zap.Error(err))
		}

	case newOwner == "" && oldOwner != "":
		m.mu.Lock()
		delete(m.playerNames, oldOwner)
		remaining := len(m.playerNames)
		m.mu.Unlock()

		m.logger.Info("MPRIS player removed", zap.String("player", name), zap.String("unique", oldOwner))
		if remaining == 0 {
			m.emit(domain.NowPlayingState{Error: domain.ErrorNothingPlaying, ReceivedAt: time.Now()}, name)
		}

	case newOwner != "" && oldOwner != "":
		m.mu.Lock()
		delete(m.playerNames, oldOwner)
		m.playerNames[newOwner] = name
		m.mu.Unlock()
	}
}

// handleSignal processes PropertiesChanged(interface, changed, invalidated)
func (m *Source) handleSignal(sig *dbus.Signal) {
	if sig.Name != propsChanged || len(sig.Body) < 2 {
		return
	}
	interfaceName, ok := sig.Body[0].(string)
	if !ok || interfaceName != playerIface {
		return
	}
	changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	playerName := m.getPlayerName(sig.Sender)
	metadataVariant, hasMetadata := changedProps["Metadata"]
	statusVariant, hasStatus := changedProps["PlaybackStatus"]
	if !hasMetadata && !hasStatus {
		return
	}

	var metadata map[string]dbus.Variant
	var status string

	if hasMetadata {
		if metadata, ok = metadataVariant.Value().(map[string]dbus.Variant); !ok {
			m.logger.Warn("Invalid metadata format in signal, ignoring")
			return
		}
	}

	if hasStatus {
		if status, ok = statusVariant.Value().(string); !ok {
			m.logger.Warn("Invalid playback status format in signal, ignoring")
			return
		}
	} else if v, err := m.conn.GetProperty(sig.Sender, objectPath, statusProp); err == nil {
		status, _ = v.Value().(string)
	}

	if !hasMetadata {
		if v, err := m.conn.GetProperty(sig.Sender, objectPath, metadataProp); err == nil {
			metadata, _ = v.Value().(map[string]dbus.Variant)
		}
	}

	m.emit(m.toState(metadata, status), playerName)
}

// toState maps MPRIS metadata and PlaybackStatus to a snapshot
func (m *Source) toState(metadata map[string]dbus.Variant, status string) domain.NowPlayingState {
	state := domain.NowPlayingState{ReceivedAt: time.Now()}

	switch status {
	case "Playing":
		state.IsPlaying = true
	case "Paused":
	default:
		state.Error = domain.ErrorNothingPlaying
	}

	if metadata == nil {
		return state
	}

	state.Title = stringField(metadata, "xesam:title")
	state.Album = stringField(metadata, "xesam:album")

	if artistVar, ok := metadata["xesam:artist"]; ok {
		switch artists := artistVar.Value().(type) {
		case []string:
			if len(artists) > 0 {
				state.Artist = domain.StringPtr(strings.Join(artists, ", "))
			}
		case string:
			state.Artist = domain.StringPtr(artists)
		default:
			m.logger.Debug("Unexpected artist type in metadata",
				zap.String("type", fmt.Sprintf("%T", artistVar.Value())))
		}
	}

	// Browsers and local files may send an empty artUrl
	if art := stringField(metadata, "mpris:artUrl"); art != nil && *art != "" {
		state.ImageURL = art
	}

	return state
}

func stringField(metadata map[string]dbus.Variant, key string) *string {
	v, ok := metadata[key]
	if !ok {
		return nil
	}
	s, ok := v.Value().(string)
	if !ok {
		return nil
	}
	return &s
}

func (m *Source) getPlayerName(uniqueName string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if wellKnown, ok := m.playerNames[uniqueName]; ok {
		return wellKnown
	}
	return uniqueName
}

// emit never blocks; the consumer debounces so intermediate states may be dropped
func (m *Source) emit(state domain.NowPlayingState, player string) {
	select {
	case m.events <- state:
		m.logger.Info("Media change detected",
			zap.String("player", player),
			zap.String("title", state.TitleOr("")),
			zap.String("artist", state.ArtistOr("")),
			zap.Bool("isPlaying", state.IsPlaying))
	default:
		m.logChannelFullWarning()
	}
}

// logChannelFullWarning is rate limited to one warning per 5 seconds
func (m *Source) logChannelFullWarning() {
	m.mu.Lock()
	defer m.mu.Unlock()

	const warningInterval = 5 * time.Second
	now := time.Now()
	if now.Sub(m.lastDropWarning) >= warningInterval {
		m.logger.Warn("Events channel full, dropping player state")
		m.lastDropWarning = now
	}
}
