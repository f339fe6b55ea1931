// Package ws holds the live WebSocket connections of listening sessions. The
// gateway is a directory keyed by session id; card subscriptions live in the
// alerts registry, so a dropped socket never loses a subscription.
package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/honeypot-card-monitor/internal/domain/subscription"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing alerts per session.
	sendBufferSize = 64
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. In production, restrict this to known origins.
		return true
	},
}

// ErrSessionClosed is returned by Send once the socket is gone
var ErrSessionClosed = errors.New("session closed")

// ErrSendBufferFull is returned when a slow client cannot keep up; the alert
// is dropped rather than blocking the fan-out
var ErrSendBufferFull = errors.New("session send buffer full")

// Session is one live WebSocket connection. It satisfies the delivery handle
// the alerts registry holds for the session.
type Session struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	metadata  map[string]string
	logger    *slog.Logger
}

// Send queues one alert frame for delivery. It never blocks: a full buffer
// drops the frame and reports it so health counters record the miss.
func (s *Session) Send(payload []byte) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	select {
	case s.send <- payload:
		return nil
	case <-s.closed:
		return ErrSessionClosed
	default:
		return ErrSendBufferFull
	}
}

// IsLive reports whether the socket is still attached
func (s *Session) IsLive() bool {
	select {
	case <-s.closed:
		return false
	default:
		return true
	}
}

// Metadata returns connection metadata captured at upgrade time
func (s *Session) Metadata() map[string]string {
	return s.metadata
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.Close()
	})
}

// readPump reads inbound frames. Pongs and closes refresh or end the
// connection; data frames are handed to onFrame as control messages.
func (s *Session) readPump(onClose func(*Session), onFrame func(*Session, []byte)) {
	defer func() {
		s.close()
		onClose(s)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("Unexpected WebSocket close",
					"session_id", s.id,
					"error", err,
				)
			}
			return
		}
		if len(data) > 0 {
			onFrame(s, data)
		}
	}
}

// writePump pumps queued alerts to the socket and sends periodic pings
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case <-s.closed:
			return

		case payload := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SessionBinder is the slice of the alerts registry the gateway needs: it
// re-attaches a fresh delivery handle after a reconnect and registers cards
// requested in-band over the socket.
type SessionBinder interface {
	Rebind(sessionID string, sess subscription.Session) bool
	RegisterAll(sessionID string, cardTokens []string, sess subscription.Session) []subscription.RegistrationResult
}

// controlFrame is the message a client may send on the socket to manage its
// subscription without a separate HTTP round trip
type controlFrame struct {
	Action     string   `json:"action"`
	CardTokens []string `json:"card_tokens"`
}

// Gateway is the directory of live sessions
type Gateway struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	binder   SessionBinder
	logger   *slog.Logger
}

func NewGateway(binder SessionBinder, logger *slog.Logger) *Gateway {
	return &Gateway{
		sessions: make(map[string]*Session),
		binder:   binder,
		logger:   logger,
	}
}

// HandleConnection upgrades the request and registers the session under the
// given id. A reconnect replaces the previous socket and rebinds any existing
// card subscriptions to the new one.
func (g *Gateway) HandleConnection(w http.ResponseWriter, r *http.Request, sessionID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection for session %s: %w", sessionID, err)
	}

	sess := &Session{
		id:     sessionID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
		metadata: map[string]string{
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
		},
		logger: g.logger,
	}

	g.mu.Lock()
	if previous, ok := g.sessions[sessionID]; ok {
		previous.close()
	}
	g.sessions[sessionID] = sess
	total := len(g.sessions)
	g.mu.Unlock()

	if g.binder.Rebind(sessionID, sess) {
		g.logger.Info("Session reconnected, subscriptions rebound", "session_id", sessionID)
	}
	g.logger.Info("Session connected", "session_id", sessionID, "total_sessions", total)

	go sess.writePump()
	go sess.readPump(g.remove, g.handleControlFrame)

	return nil
}

// handleControlFrame processes one in-band message from a client. Malformed
// or unknown frames are logged and dropped; the socket stays open.
func (g *Gateway) handleControlFrame(sess *Session, data []byte) {
	var frame controlFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		g.logger.Warn("Discarding unparseable control frame",
			"session_id", sess.id,
			"error", err,
		)
		return
	}

	switch frame.Action {
	case "subscribe":
		if len(frame.CardTokens) == 0 {
			g.logger.Warn("Subscribe control frame carries no card tokens", "session_id", sess.id)
			return
		}
		results := g.binder.RegisterAll(sess.id, frame.CardTokens, sess)
		registered := 0
		for _, r := range results {
			if r.OK {
				registered++
			}
		}
		g.logger.Info("Subscribed cards via control frame",
			"session_id", sess.id,
			"registered", registered,
			"requested", len(frame.CardTokens),
		)
	default:
		g.logger.Warn("Unknown control frame action",
			"session_id", sess.id,
			"action", frame.Action,
		)
	}
}

// Lookup returns the live session for the id, if any
func (g *Gateway) Lookup(sessionID string) (subscription.Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	sess, ok := g.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return sess, true
}

// CloseSession tears down the socket for the id. Returns false when no live
// session was attached.
func (g *Gateway) CloseSession(sessionID string) bool {
	g.mu.Lock()
	sess, ok := g.sessions[sessionID]
	if ok {
		delete(g.sessions, sessionID)
	}
	g.mu.Unlock()

	if ok {
		sess.close()
	}
	return ok
}

// Shutdown closes every live socket
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	sessions := make([]*Session, 0, len(g.sessions))
	for _, sess := range g.sessions {
		sessions = append(sessions, sess)
	}
	g.sessions = make(map[string]*Session)
	g.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
	g.logger.Info("Closed all WebSocket sessions", "count", len(sessions))
}

// remove drops a session from the directory once its pumps exit. The entry
// may already point at a newer socket after a reconnect; leave that one alone.
func (g *Gateway) remove(sess *Session) {
	g.mu.Lock()
	if current, ok := g.sessions[sess.id]; ok && current == sess {
		delete(g.sessions, sess.id)
	}
	total := len(g.sessions)
	g.mu.Unlock()

	g.logger.Info("Session disconnected", "session_id", sess.id, "total_sessions", total)
}
