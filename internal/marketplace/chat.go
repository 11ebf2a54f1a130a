package marketplace

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/state"
)

// AutoReplyText is what a driver "answers" to a passenger's message.
const AutoReplyText = "Got it! See you then."

func (s *Service) Conversation(ctx context.Context, rideID, userID string) (models.Conversation, error) {
	st := s.snapshot()
	if _, ok := st.Ride(rideID); !ok {
		return models.Conversation{}, state.ErrRideNotFound
	}
	if !st.CanChat(rideID, userID) {
		return models.Conversation{}, state.ErrForbidden
	}
	c := st.Conversation(rideID)
	if c.Messages == nil {
		c.Messages = []models.Message{}
	}
	return c, nil
}

// CanChat reports whether the user may join the ride's live chat.
func (s *Service) CanChat(rideID, userID string) bool {
	return s.snapshot().CanChat(rideID, userID)
}

// PostMessage appends to the ride's conversation. A passenger's message gets
// a canned reply from the driver after the configured delay.
func (s *Service) PostMessage(ctx context.Context, rideID, senderID, text string) (models.Message, error) {
	m := models.Message{ID: s.newID(), RideID: rideID, SenderID: senderID, Text: text, Timestamp: s.now()}
	next, ev, err := s.apply(ctx, state.PostMessage{Message: m})
	if err != nil {
		return models.Message{}, err
	}
	if r, ok := next.Ride(rideID); ok && r.DriverID != senderID && s.autoReplyDelay > 0 {
		s.scheduleAutoReply(rideID, r.DriverID)
	}
	return *ev.Message, nil
}

func (s *Service) scheduleAutoReply(rideID, driverID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if s.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(s.autoReplyDelay, func() {
		s.timersMu.Lock()
		delete(s.timers, t)
		s.timersMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m := models.Message{ID: s.newID(), RideID: rideID, SenderID: driverID, Text: AutoReplyText, Timestamp: s.now()}
		if _, _, err := s.apply(ctx, state.PostMessage{Message: m}); err != nil {
			s.logger.Warn("auto reply failed", zap.String("ride_id", rideID), zap.Error(err))
		}
	})
	s.timers[t] = struct{}{}
}
