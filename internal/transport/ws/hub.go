package ws

import (
	"sync"

	"github.com/cwrk-planet/presence-service/internal/domain"
	"github.com/cwrk-planet/presence-service/pkg/metrics"
)

type Conn interface {
	Send(st domain.RoomState) error
	Close() error
	UserID() string
	RoomID() string
}

// Hub is the local subscriber registry: every websocket connection on
// this instance, grouped by room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{} // roomID -> set of connections
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Conn]struct{})}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[c.RoomID()]
	if !ok {
		rs = make(map[Conn]struct{})
		h.rooms[c.RoomID()] = rs
	}
	rs[c] = struct{}{}
}

func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.rooms[c.RoomID()]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, c.RoomID())
		}
	}
}

// Broadcast delivers st to every local connection in the room,
// including the one that caused the update. Best-effort: send errors
// are ignored and delivery continues past a failed subscriber. Sends
// are sequential, so a stalled peer can delay the rest for up to its
// write deadline.
func (h *Hub) Broadcast(roomID string, st domain.RoomState) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if rs, ok := h.rooms[roomID]; ok {
		metrics.Broadcasts.Inc()
		for c := range rs {
			_ = c.Send(st)
		}
	}
}
