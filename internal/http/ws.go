package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/example/ridelink/internal/state"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const (
	maxChatFrame = 4096
	pongWait     = 60 * time.Second
)

type inboundChat struct {
	Text string `json:"text"`
}

// handleChatSocket joins the caller to a ride's live chat. Frames received
// are posted as messages; every posted message is pushed back through the hub.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	rideID := mux.Vars(r)["id"]
	userID := userIDFromContext(r.Context())
	if !s.svc.CanChat(rideID, userID) {
		s.writeError(w, r, state.ErrForbidden)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	sess := s.hub.Join(rideID, userID, conn)
	defer s.hub.Leave(sess)

	conn.SetReadLimit(maxChatFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		var in inboundChat
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info("chat socket closed", zap.String("ride_id", rideID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if strings.TrimSpace(in.Text) == "" {
			continue
		}
		if _, err := s.svc.PostMessage(r.Context(), rideID, userID, in.Text); err != nil {
			s.logger.Warn("chat post failed", zap.String("ride_id", rideID), zap.String("user_id", userID), zap.Error(err))
		}
	}
}
