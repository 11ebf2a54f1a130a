package state

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/example/ridelink/internal/discovery"
	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/trust"
)

// Action is a discrete transition of the application state.
type Action interface {
	apply(s State) (State, Event, error)
}

// Apply runs a on s. On error the returned state is s itself.
func Apply(s State, a Action) (State, Event, error) {
	next, ev, err := a.apply(s)
	if err != nil {
		return s, Event{}, err
	}
	return next, ev, nil
}

type SignUp struct {
	User models.User
	At   time.Time
}

func (a SignUp) apply(s State) (State, Event, error) {
	u := a.User
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(u.Email)
	if u.ID == "" || u.Name == "" || u.Email == "" || !strings.Contains(u.Email, "@") {
		return s, Event{}, fmt.Errorf("%w: name and a valid email are required", ErrInvalidUser)
	}
	if !u.VerificationType.Valid() {
		return s, Event{}, fmt.Errorf("%w: unknown verification type %q", ErrInvalidUser, u.VerificationType)
	}
	if _, ok := s.User(u.ID); ok {
		return s, Event{}, ErrDuplicateID
	}
	if _, ok := s.UserByEmail(u.Email); ok {
		return s, Event{}, ErrEmailTaken
	}
	if u.Gender == "" {
		u.Gender = models.GenderOther
	}
	u.TrustScore = models.DefaultTrustScore
	u.Reviews = []models.Rating{}
	u.CreatedAt = a.At

	s.Users = append(slices.Clip(s.Users), u)
	return s, Event{Type: EventUserSignedUp, At: a.At, User: &u}, nil
}

type PublishRide struct {
	Ride models.Ride
	At   time.Time
}

func (a PublishRide) apply(s State) (State, Event, error) {
	r := a.Ride
	r.From = strings.TrimSpace(r.From)
	r.To = strings.TrimSpace(r.To)
	if err := validateRide(r); err != nil {
		return s, Event{}, err
	}
	if _, ok := s.User(r.DriverID); !ok {
		return s, Event{}, ErrUserNotFound
	}
	if _, ok := s.Ride(r.ID); ok {
		return s, Event{}, ErrDuplicateID
	}
	if r.Amenities == nil {
		r.Amenities = []string{}
	}
	r.CreatedAt = a.At

	// newest offers are listed first
	rides := make([]models.Ride, 0, len(s.Rides)+1)
	rides = append(rides, r)
	s.Rides = append(rides, s.Rides...)
	return s, Event{Type: EventRidePublished, At: a.At, Ride: &r}, nil
}

func validateRide(r models.Ride) error {
	switch {
	case r.ID == "" || r.DriverID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidRide)
	case r.From == "" || r.To == "":
		return fmt.Errorf("%w: origin and destination are required", ErrInvalidRide)
	case strings.EqualFold(r.From, r.To):
		return fmt.Errorf("%w: origin and destination must differ", ErrInvalidRide)
	case r.PricePerSeat < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidRide)
	case r.AvailableSeats < 1:
		return fmt.Errorf("%w: at least one seat must be offered", ErrInvalidRide)
	case strings.TrimSpace(r.EstimatedArrivalTime) == "":
		return fmt.Errorf("%w: estimated arrival time is required", ErrInvalidRide)
	}
	if _, err := time.Parse(time.DateOnly, r.DepartureDate); err != nil {
		return fmt.Errorf("%w: departure date must be YYYY-MM-DD", ErrInvalidRide)
	}
	if _, _, err := discovery.ParseClock(r.DepartureTime); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRide, err)
	}
	return nil
}

// SubmitReview appends a rating to the ride's driver and recomputes the
// driver's trust score.
type SubmitReview struct {
	Rating models.Rating
	At     time.Time
}

func (a SubmitReview) apply(s State) (State, Event, error) {
	rv := a.Rating
	if rv.Rating < 1 || rv.Rating > 5 {
		return s, Event{}, ErrInvalidRating
	}
	ride, ok := s.Ride(rv.RideID)
	if !ok {
		return s, Event{}, ErrRideNotFound
	}
	if _, ok := s.ActiveBooking(rv.RideID, rv.RaterID); !ok {
		return s, Event{}, ErrNotPassenger
	}
	if s.HasRated(rv.RideID, rv.RaterID) {
		return s, Event{}, ErrAlreadyRated
	}
	idx := slices.IndexFunc(s.Users, func(u models.User) bool { return u.ID == ride.DriverID })
	if idx < 0 {
		return s, Event{}, ErrUserNotFound
	}
	rv.Comment = strings.TrimSpace(rv.Comment)
	rv.CreatedAt = a.At

	users := slices.Clone(s.Users)
	driver := users[idx]
	driver.Reviews = append(slices.Clip(driver.Reviews), rv)
	driver.TrustScore = trust.Compute(driver.Reviews)
	users[idx] = driver
	s.Users = users

	return s, Event{
		Type:       EventReviewSubmitted,
		At:         a.At,
		Rating:     &rv,
		DriverID:   driver.ID,
		Reviews:    driver.Reviews,
		TrustScore: driver.TrustScore,
	}, nil
}

// BookSeats claims seats on a ride for a passenger.
type BookSeats struct {
	Booking models.Booking
	At      time.Time
}

func (a BookSeats) apply(s State) (State, Event, error) {
	b := a.Booking
	if b.ID == "" {
		return s, Event{}, fmt.Errorf("%w: missing booking id", ErrInvalidBooking)
	}
	if b.Seats < 1 {
		b.Seats = 1
	}
	idx := slices.IndexFunc(s.Rides, func(r models.Ride) bool { return r.ID == b.RideID })
	if idx < 0 {
		return s, Event{}, ErrRideNotFound
	}
	ride := s.Rides[idx]
	if _, ok := s.User(b.PassengerID); !ok {
		return s, Event{}, ErrUserNotFound
	}
	if ride.DriverID == b.PassengerID {
		return s, Event{}, ErrOwnRide
	}
	if _, ok := s.ActiveBooking(b.RideID, b.PassengerID); ok {
		return s, Event{}, ErrAlreadyBooked
	}
	if _, ok := s.Booking(b.ID); ok {
		return s, Event{}, ErrDuplicateID
	}
	if ride.AvailableSeats < b.Seats {
		return s, Event{}, ErrInsufficientSeats
	}

	b.Amount = int64(b.Seats) * int64(ride.PricePerSeat)
	b.Status = models.BookingConfirmed
	b.CreatedAt = a.At
	b.UpdatedAt = a.At

	rides := slices.Clone(s.Rides)
	rides[idx].AvailableSeats -= b.Seats
	s.Rides = rides
	s.Bookings = append(slices.Clip(s.Bookings), b)
	return s, Event{Type: EventBookingConfirmed, At: a.At, Booking: &b}, nil
}

// CancelBooking releases a passenger's seats.
type CancelBooking struct {
	BookingID string
	UserID    string
	At        time.Time
}

func (a CancelBooking) apply(s State) (State, Event, error) {
	bi := slices.IndexFunc(s.Bookings, func(b models.Booking) bool { return b.ID == a.BookingID })
	if bi < 0 {
		return s, Event{}, ErrBookingNotFound
	}
	b := s.Bookings[bi]
	if b.PassengerID != a.UserID {
		return s, Event{}, ErrForbidden
	}
	if b.Status != models.BookingConfirmed {
		return s, Event{}, ErrBookingClosed
	}
	b.Status = models.BookingCancelled
	b.UpdatedAt = a.At

	bookings := slices.Clone(s.Bookings)
	bookings[bi] = b
	s.Bookings = bookings

	if ri := slices.IndexFunc(s.Rides, func(r models.Ride) bool { return r.ID == b.RideID }); ri >= 0 {
		rides := slices.Clone(s.Rides)
		rides[ri].AvailableSeats += b.Seats
		s.Rides = rides
	}
	return s, Event{Type: EventBookingCancelled, At: a.At, Booking: &b}, nil
}

// PostMessage appends to a ride's conversation. Only the driver and
// passengers holding a confirmed booking may write.
type PostMessage struct {
	Message models.Message
}

func (a PostMessage) apply(s State) (State, Event, error) {
	m := a.Message
	m.Text = strings.TrimSpace(m.Text)
	if m.Text == "" {
		return s, Event{}, ErrEmptyMessage
	}
	if _, ok := s.Ride(m.RideID); !ok {
		return s, Event{}, ErrRideNotFound
	}
	if !s.CanChat(m.RideID, m.SenderID) {
		return s, Event{}, ErrForbidden
	}

	convs := slices.Clone(s.Conversations)
	ci := slices.IndexFunc(convs, func(c models.Conversation) bool { return c.RideID == m.RideID })
	if ci < 0 {
		convs = append(convs, models.Conversation{RideID: m.RideID, Messages: []models.Message{m}})
	} else {
		c := convs[ci]
		c.Messages = append(slices.Clip(c.Messages), m)
		convs[ci] = c
	}
	s.Conversations = convs
	return s, Event{Type: EventMessagePosted, At: m.Timestamp, Message: &m}, nil
}
