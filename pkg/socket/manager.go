// Package socket owns the duplex channel to the build service: one
// websocket per session id, an explicit connection state machine, and the
// reconnect policy for abnormal closes.
package socket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stackpad/stackpad/pkg/chat"
	"github.com/stackpad/stackpad/pkg/logger"
)

var (
	// ErrNotConnected is returned by Send when no channel is open. Messages
	// are never queued; the caller must surface this to the user.
	ErrNotConnected = errors.New("no open channel for session")

	// ErrOpenTimeout is returned when the channel did not open in time
	ErrOpenTimeout = errors.New("channel open timed out")
)

// Close codes that signal a session-layer reset; these reconnect without
// user action. Everything else stays DISCONNECTED until an explicit
// Reconnect call.
var autoReconnectCodes = map[int]bool{
	websocket.CloseProtocolError:   true, // 1002
	websocket.CloseUnsupportedData: true, // 1003
}

// FrameHandler receives every decoded inbound frame, in arrival order
type FrameHandler func(frame chat.Frame)

// TransportHandler receives transport-level status transitions
// (CONNECTING, DISCONNECTED, and the implicit opened signal). Statuses
// carried by inbound status frames flow through the FrameHandler instead.
type TransportHandler func(status chat.Status)

// CloseHandler is notified when the channel closes, with the close code
// and whether an autonomous reconnect is underway
type CloseHandler func(code int, reason string, reconnecting bool)

// channel is one websocket instance. Each carries a unique identity so
// callbacks from a superseded instance can be recognized and dropped.
type channel struct {
	id   uuid.UUID
	ws   *websocket.Conn
	done chan struct{}
	once sync.Once
}

func (c *channel) close() {
	c.once.Do(func() {
		close(c.done)
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.ws.Close()
	})
}

// Manager owns the lifecycle of one channel per session id
type Manager struct {
	mu           sync.Mutex
	baseURL      string
	token        string
	dialer       *websocket.Dialer
	openTimeout  time.Duration
	pingInterval time.Duration

	conn      *channel
	sessionID string
	gen       uint64

	onFrame     FrameHandler
	onTransport TransportHandler
	onClose     CloseHandler

	log *logger.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithOpenTimeout overrides the bound on channel establishment
func WithOpenTimeout(d time.Duration) Option {
	return func(m *Manager) { m.openTimeout = d }
}

// WithPingInterval overrides the keepalive interval (0 disables)
func WithPingInterval(d time.Duration) Option {
	return func(m *Manager) { m.pingInterval = d }
}

// WithDialer overrides the websocket dialer (useful for testing)
func WithDialer(d *websocket.Dialer) Option {
	return func(m *Manager) { m.dialer = d }
}

// NewManager creates a connection manager for the given service
func NewManager(baseURL, token string, opts ...Option) *Manager {
	m := &Manager{
		baseURL:      baseURL,
		token:        token,
		dialer:       websocket.DefaultDialer,
		openTimeout:  5 * time.Second,
		pingInterval: 30 * time.Second,
		log:          logger.WithComponent("socket"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnFrame registers the inbound frame handler
func (m *Manager) OnFrame(handler FrameHandler) {
	m.onFrame = handler
}

// OnTransport registers the transport status handler
func (m *Manager) OnTransport(handler TransportHandler) {
	m.onTransport = handler
}

// OnClose registers the close notification handler
func (m *Manager) OnClose(handler CloseHandler) {
	m.onClose = handler
}

// SessionID returns the id of the session the current or last channel was
// opened for
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// IsConnected reports whether a channel is currently open
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Open establishes a channel for the given session id, closing any
// existing channel first. It fails with ErrOpenTimeout when the opened
// signal does not arrive within the configured bound, leaving the session
// DISCONNECTED.
func (m *Manager) Open(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	if m.conn != nil {
		m.conn.close()
		m.conn = nil
	}
	m.sessionID = sessionID
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	m.emitTransport(chat.StatusConnecting)

	socketURL, err := m.socketURL(sessionID)
	if err != nil {
		m.emitTransport(chat.StatusDisconnected)
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.openTimeout)
	defer cancel()

	ws, _, err := m.dialer.DialContext(dialCtx, socketURL, nil)
	if err != nil {
		m.emitTransport(chat.StatusDisconnected)
		// The dialer may surface the expired context as an i/o deadline
		// error, so consult the context directly.
		if errors.Is(err, context.DeadlineExceeded) || dialCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: %s", ErrOpenTimeout, sessionID)
		}
		return fmt.Errorf("failed to open channel for session %s: %w", sessionID, err)
	}

	ch := &channel{
		id:   uuid.New(),
		ws:   ws,
		done: make(chan struct{}),
	}

	m.mu.Lock()
	// A concurrent Open or Close may have won the race while we were
	// dialing; the dialed socket must not come back up in that case.
	if m.gen != gen {
		m.mu.Unlock()
		ch.close()
		return fmt.Errorf("open superseded for session %s", sessionID)
	}
	if m.conn != nil {
		m.conn.close()
	}
	m.conn = ch
	m.mu.Unlock()

	m.log.Info("channel opened", "session", sessionID, "instance", ch.id)

	go m.readLoop(ch, sessionID)
	if m.pingInterval > 0 {
		go m.pingLoop(ch)
	}
	return nil
}

// Reconnect reopens a channel for the current session id
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	sessionID := m.sessionID
	m.mu.Unlock()
	if sessionID == "" {
		return errors.New("no session to reconnect")
	}
	return m.Open(ctx, sessionID)
}

// Send serializes and transmits a message. Only valid while the channel
// is open; there is no implicit queuing.
func (m *Manager) Send(msg chat.Message) error {
	data, err := chat.EncodeOutbound(msg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return ErrNotConnected
	}
	if err := m.conn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close releases the channel. Safe to call multiple times and during an
// in-flight open; the underlying socket is closed exactly once.
func (m *Manager) Close() {
	m.mu.Lock()
	ch := m.conn
	m.conn = nil
	m.gen++
	m.mu.Unlock()

	if ch != nil {
		ch.close()
	}
}

func (m *Manager) socketURL(sessionID string) (string, error) {
	parsed, err := url.Parse(m.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", m.baseURL, err)
	}
	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server URL scheme %q", parsed.Scheme)
	}
	parsed.Path = "/api/ws/chat/" + sessionID
	query := parsed.Query()
	query.Set("token", m.token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// readLoop drains one channel instance, decoding and dispatching frames.
// Events tagged with a superseded instance are dropped so a reopen never
// delivers stale callbacks.
func (m *Manager) readLoop(ch *channel, sessionID string) {
	for {
		_, data, err := ch.ws.ReadMessage()
		if err != nil {
			code, reason := closeDetails(err)
			m.handleClose(ch, sessionID, code, reason)
			return
		}

		if !m.isCurrent(ch) {
			m.log.Debug("dropping frame from stale channel", "instance", ch.id)
			continue
		}

		frame, err := chat.DecodeFrame(data)
		if err != nil {
			m.log.Warn("dropping malformed frame", "session", sessionID, "error", err)
			continue
		}
		if frame == nil {
			continue
		}

		if m.onFrame != nil {
			m.onFrame(frame)
		}
	}
}

func (m *Manager) pingLoop(ch *channel) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ch.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(m.openTimeout)
			if err := ch.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (m *Manager) isCurrent(ch *channel) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil && m.conn.id == ch.id
}

func (m *Manager) handleClose(ch *channel, sessionID string, code int, reason string) {
	m.mu.Lock()
	if m.conn == nil || m.conn.id != ch.id {
		// A newer channel already took over; nothing to report.
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.mu.Unlock()

	ch.close()
	reconnecting := autoReconnectCodes[code]
	m.log.Info("channel closed", "session", sessionID, "code", code,
		"reason", reason, "reconnecting", reconnecting)

	m.emitTransport(chat.StatusDisconnected)
	if m.onClose != nil {
		m.onClose(code, reason, reconnecting)
	}

	if reconnecting {
		go func() {
			if err := m.Open(context.Background(), sessionID); err != nil {
				m.log.Error("autonomous reconnect failed", "session", sessionID, "error", err)
			}
		}()
	}
}

func (m *Manager) emitTransport(status chat.Status) {
	if m.onTransport != nil {
		m.onTransport(status)
	}
}

func closeDetails(err error) (int, string) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code, closeErr.Text
	}
	return websocket.CloseAbnormalClosure, err.Error()
}
