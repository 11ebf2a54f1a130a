package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/state"
)

// Store persists the marketplace. The service keeps the live state in
// memory and writes every transition through to the store.
type Store interface {
	Load(ctx context.Context) (state.State, error)
	SaveUser(ctx context.Context, u models.User) error
	SaveRide(ctx context.Context, r models.Ride) error
	SaveReview(ctx context.Context, driverID string, r models.Rating, trustScore float64) error
	SaveBooking(ctx context.Context, b models.Booking) error
	// SaveBookingWithRide stores a booking together with the ride's
	// updated seat count; either both are written or neither is.
	SaveBookingWithRide(ctx context.Context, b models.Booking, r models.Ride) error
	SaveMessage(ctx context.Context, m models.Message) error
	Close() error
}

// Record writes the effects of a state event to st.
func Record(ctx context.Context, st Store, next state.State, ev state.Event) error {
	switch ev.Type {
	case state.EventUserSignedUp:
		// the event's user has PasswordHash hidden only by its json tag;
		// read the stored user so the store never depends on that
		u, ok := next.User(ev.User.ID)
		if !ok {
			return fmt.Errorf("record %s: user %s missing", ev.Type, ev.User.ID)
		}
		return st.SaveUser(ctx, u)
	case state.EventRidePublished:
		return st.SaveRide(ctx, *ev.Ride)
	case state.EventReviewSubmitted:
		return st.SaveReview(ctx, ev.DriverID, *ev.Rating, ev.TrustScore)
	case state.EventBookingConfirmed, state.EventBookingCancelled:
		r, ok := next.Ride(ev.Booking.RideID)
		if !ok {
			return fmt.Errorf("record %s: ride %s missing", ev.Type, ev.Booking.RideID)
		}
		return st.SaveBookingWithRide(ctx, *ev.Booking, r)
	case state.EventMessagePosted:
		return st.SaveMessage(ctx, *ev.Message)
	}
	return nil
}

type MemoryStore struct {
	mu       sync.RWMutex
	users    []models.User
	rides    []models.Ride
	bookings []models.Booking
	messages []models.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (state.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := state.State{
		Users:    append([]models.User(nil), m.users...),
		Rides:    append([]models.Ride(nil), m.rides...),
		Bookings: append([]models.Booking(nil), m.bookings...),
	}
	s.Conversations = groupMessages(m.messages)
	return s, nil
}

func (m *MemoryStore) SaveUser(ctx context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == u.ID {
			m.users[i] = u
			return nil
		}
	}
	m.users = append(m.users, u)
	return nil
}

func (m *MemoryStore) SaveRide(ctx context.Context, r models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rides {
		if m.rides[i].ID == r.ID {
			m.rides[i] = r
			return nil
		}
	}
	m.rides = append([]models.Ride{r}, m.rides...)
	return nil
}

func (m *MemoryStore) SaveReview(ctx context.Context, driverID string, r models.Rating, trustScore float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == driverID {
			u := m.users[i]
			u.Reviews = append(append([]models.Rating(nil), u.Reviews...), r)
			u.TrustScore = trustScore
			m.users[i] = u
			return nil
		}
	}
	return fmt.Errorf("save review: %w", state.ErrUserNotFound)
}

func (m *MemoryStore) SaveBooking(ctx context.Context, b models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bookings {
		if m.bookings[i].ID == b.ID {
			m.bookings[i] = b
			return nil
		}
	}
	m.bookings = append(m.bookings, b)
	return nil
}

func (m *MemoryStore) SaveBookingWithRide(ctx context.Context, b models.Booking, r models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ri := -1
	for i := range m.rides {
		if m.rides[i].ID == r.ID {
			ri = i
			break
		}
	}
	if ri < 0 {
		return fmt.Errorf("save booking %s: %w", b.ID, state.ErrRideNotFound)
	}
	m.rides[ri] = r
	for i := range m.bookings {
		if m.bookings[i].ID == b.ID {
			m.bookings[i] = b
			return nil
		}
	}
	m.bookings = append(m.bookings, b)
	return nil
}

func (m *MemoryStore) SaveMessage(ctx context.Context, msg models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// groupMessages keeps conversations in order of their first message.
func groupMessages(msgs []models.Message) []models.Conversation {
	var out []models.Conversation
	idx := map[string]int{}
	for _, msg := range msgs {
		i, ok := idx[msg.RideID]
		if !ok {
			i = len(out)
			idx[msg.RideID] = i
			out = append(out, models.Conversation{RideID: msg.RideID})
		}
		out[i].Messages = append(out[i].Messages, msg)
	}
	return out
}

// Seed writes a whole state into an empty store.
func Seed(ctx context.Context, st Store, s state.State) error {
	for _, u := range s.Users {
		if err := st.SaveUser(ctx, u); err != nil {
			return err
		}
	}
	// SaveRide prepends, so insert oldest first
	for i := len(s.Rides) - 1; i >= 0; i-- {
		if err := st.SaveRide(ctx, s.Rides[i]); err != nil {
			return err
		}
	}
	for _, b := range s.Bookings {
		if err := st.SaveBooking(ctx, b); err != nil {
			return err
		}
	}
	for _, c := range s.Conversations {
		for _, m := range c.Messages {
			if err := st.SaveMessage(ctx, m); err != nil {
				return err
			}
		}
	}
	return nil
}
