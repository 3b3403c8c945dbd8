package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cwrk-planet/presence-service/internal/auth"
	"github.com/cwrk-planet/presence-service/internal/domain"
	"github.com/cwrk-planet/presence-service/internal/roomkey"
	"github.com/cwrk-planet/presence-service/pkg/metrics"
)

type Presence interface {
	Join(ctx context.Context, roomID, userID string) (domain.RoomState, error)
	Leave(ctx context.Context, roomID, userID string) (domain.RoomState, error)
	SetDirty(ctx context.Context, roomID string, dirty bool) (domain.RoomState, error)
	ForceUnlock(ctx context.Context, roomID, userID string) (domain.RoomState, error)
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	presence Presence
	auth     auth.Authorizer

	pingEvery time.Duration
}

func NewServer(hub *Hub, presence Presence, authorizer auth.Authorizer) *Server {
	return &Server{
		hub:      hub,
		presence: presence,
		auth:     authorizer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws/pages/{page path}?access_token=...
//
// The authorization decision is fully resolved before the upgrade: a
// denied principal gets a plain 401 and never touches room state.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("access_token")
	userID, ok := s.auth.Authorize(r.Context(), token)
	if !ok {
		metrics.AuthDenied.Inc()
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	roomID := roomkey.Normalize(chi.URLParam(r, "*"))
	if roomID == "" {
		http.Error(w, "missing page", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "room", roomID, "user", userID, "err", err)
		return
	}

	c := newWsConn(conn, roomID, userID)
	s.hub.Add(c)
	metrics.ActiveConnections.Inc()
	slog.Info("ws connected", "conn", c.id, "room", roomID, "user", userID)

	go s.writeLoop(r.Context(), c)

	if _, err := s.presence.Join(r.Context(), roomID, userID); err != nil {
		// Store down: close rather than proceed on state we cannot trust.
		slog.Error("ws join failed", "conn", c.id, "room", roomID, "user", userID, "err", err)
		s.hub.Remove(c)
		metrics.ActiveConnections.Dec()
		_ = c.Close()
		return
	}

	s.readLoop(r.Context(), c)

	// Cleanup runs on every exit path, clean close or not, on a context
	// that survives the request so the Leave transition always lands.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 10*time.Second)
	defer cancel()

	if _, err := s.presence.Leave(ctx, roomID, userID); err != nil {
		slog.Error("ws leave failed", "conn", c.id, "room", roomID, "user", userID, "err", err)
	}
	s.hub.Remove(c)
	metrics.ActiveConnections.Dec()
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "conn", c.id, "err", err)
	}
	slog.Info("ws disconnected", "conn", c.id, "room", roomID, "user", userID)
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(4 << 10)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("ws malformed message", "conn", c.id, "room", c.roomID)
			continue
		}

		var opErr error
		switch msg.Event {
		case EventDirtyTrue:
			_, opErr = s.presence.SetDirty(ctx, c.roomID, true)
		case EventDirtyFalse:
			_, opErr = s.presence.SetDirty(ctx, c.roomID, false)
		case EventForceUnlock:
			_, opErr = s.presence.ForceUnlock(ctx, c.roomID, c.userID)
		default:
			// Unknown events are ignored for forward compatibility, but
			// logged: to the sender a typo'd event is an invisible failure.
			slog.Debug("ws unknown event", "conn", c.id, "room", c.roomID, "event", msg.Event)
			continue
		}
		if opErr != nil {
			slog.Error("ws event failed", "conn", c.id, "room", c.roomID, "event", msg.Event, "err", opErr)
			return
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

type wsConn struct {
	id     string
	conn   *websocket.Conn
	roomID string
	userID string
	sendMu chan struct{}
	closed chan struct{}
}

func newWsConn(c *websocket.Conn, roomID, userID string) *wsConn {
	return &wsConn{
		id:     uuid.NewString(),
		conn:   c,
		roomID: roomID,
		userID: userID,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Send renders the room state for this recipient and writes it out.
func (c *wsConn) Send(st domain.RoomState) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(render(st, c.userID))
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}

func (c *wsConn) UserID() string { return c.userID }
func (c *wsConn) RoomID() string { return c.roomID }
