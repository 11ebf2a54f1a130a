// Package chat fans ride messages out to live websocket sessions.
package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/observability"
)

var ErrNoSession = errors.New("no live chat session")

// Conn is the part of *websocket.Conn a session writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

const writeWait = 5 * time.Second

// Session is one user's live connection to one ride's chat.
type Session struct {
	RideID string
	UserID string
	conn   Conn
	mu     sync.Mutex
}

func (s *Session) Send(m models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wc, ok := s.conn.(*websocket.Conn); ok {
		_ = wc.SetWriteDeadline(time.Now().Add(writeWait))
	}
	return s.conn.WriteJSON(m)
}

// Hub holds sessions grouped by ride.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Session]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{rooms: make(map[string]map[*Session]struct{}), logger: logger}
}

func (h *Hub) Join(rideID, userID string, conn Conn) *Session {
	s := &Session{RideID: rideID, UserID: userID, conn: conn}
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[rideID]
	if !ok {
		room = make(map[*Session]struct{})
		h.rooms[rideID] = room
	}
	room[s] = struct{}{}
	observability.ChatSessions.Inc()
	return s
}

// Leave closes the session's connection. Safe to call twice.
func (h *Hub) Leave(s *Session) {
	h.mu.Lock()
	room := h.rooms[s.RideID]
	_, ok := room[s]
	if ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, s.RideID)
		}
	}
	h.mu.Unlock()
	if ok {
		observability.ChatSessions.Dec()
		_ = s.conn.Close()
	}
}

// Broadcast sends m to every session in the ride's room. Sessions that fail
// to receive are dropped.
func (h *Hub) Broadcast(m models.Message) error {
	h.mu.RLock()
	room := h.rooms[m.RideID]
	targets := make([]*Session, 0, len(room))
	for s := range room {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return ErrNoSession
	}
	for _, s := range targets {
		if err := s.Send(m); err != nil {
			h.logger.Warn("chat send failed", zap.String("ride_id", s.RideID), zap.String("user_id", s.UserID), zap.Error(err))
			h.Leave(s)
		}
	}
	return nil
}

// Online reports how many sessions are open for a ride.
func (h *Hub) Online(rideID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[rideID])
}
