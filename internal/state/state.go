// Package state holds the marketplace's application state as an immutable
// value. Every change goes through Apply, which returns a new State and
// leaves the old one untouched.
package state

import (
	"errors"
	"strings"
	"time"

	"github.com/example/ridelink/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrRideNotFound      = errors.New("ride not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrDuplicateID       = errors.New("duplicate id")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidUser       = errors.New("invalid user")
	ErrInvalidRide       = errors.New("invalid ride")
	ErrInvalidBooking    = errors.New("invalid booking")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrNotPassenger      = errors.New("only passengers of this ride can review it")
	ErrAlreadyRated      = errors.New("ride already rated by this user")
	ErrOwnRide           = errors.New("drivers cannot book their own ride")
	ErrAlreadyBooked     = errors.New("ride already booked by this user")
	ErrInsufficientSeats = errors.New("not enough seats available")
	ErrBookingClosed     = errors.New("booking is not active")
	ErrForbidden         = errors.New("not allowed")
	ErrEmptyMessage      = errors.New("message is empty")
)

type State struct {
	Users         []models.User
	Rides         []models.Ride
	Bookings      []models.Booking
	Conversations []models.Conversation
}

func (s State) User(id string) (models.User, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

func (s State) UserByEmail(email string) (models.User, bool) {
	for _, u := range s.Users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u, true
		}
	}
	return models.User{}, false
}

func (s State) Ride(id string) (models.Ride, bool) {
	for _, r := range s.Rides {
		if r.ID == id {
			return r, true
		}
	}
	return models.Ride{}, false
}

func (s State) Booking(id string) (models.Booking, bool) {
	for _, b := range s.Bookings {
		if b.ID == id {
			return b, true
		}
	}
	return models.Booking{}, false
}

// ActiveBooking returns the passenger's confirmed booking on a ride.
func (s State) ActiveBooking(rideID, passengerID string) (models.Booking, bool) {
	for _, b := range s.Bookings {
		if b.RideID == rideID && b.PassengerID == passengerID && b.Status == models.BookingConfirmed {
			return b, true
		}
	}
	return models.Booking{}, false
}

func (s State) Conversation(rideID string) models.Conversation {
	for _, c := range s.Conversations {
		if c.RideID == rideID {
			return c
		}
	}
	return models.Conversation{RideID: rideID}
}

// HasRated reports whether raterID already reviewed the driver of rideID.
func (s State) HasRated(rideID, raterID string) bool {
	r, ok := s.Ride(rideID)
	if !ok {
		return false
	}
	d, ok := s.User(r.DriverID)
	if !ok {
		return false
	}
	for _, rv := range d.Reviews {
		if rv.RideID == rideID && rv.RaterID == raterID {
			return true
		}
	}
	return false
}

// RidesOfferedBy lists a driver's rides, newest first.
func (s State) RidesOfferedBy(driverID string) []models.Ride {
	var out []models.Ride
	for _, r := range s.Rides {
		if r.DriverID == driverID {
			out = append(out, r)
		}
	}
	return out
}

// BookingsOf lists a passenger's bookings in creation order.
func (s State) BookingsOf(passengerID string) []models.Booking {
	var out []models.Booking
	for _, b := range s.Bookings {
		if b.PassengerID == passengerID {
			out = append(out, b)
		}
	}
	return out
}

// CanChat reports whether a user takes part in a ride.
func (s State) CanChat(rideID, userID string) bool {
	r, ok := s.Ride(rideID)
	if !ok {
		return false
	}
	if r.DriverID == userID {
		return true
	}
	_, ok = s.ActiveBooking(rideID, userID)
	return ok
}

type EventType string

const (
	EventUserSignedUp     EventType = "user.signed_up"
	EventRidePublished    EventType = "ride.published"
	EventReviewSubmitted  EventType = "review.submitted"
	EventBookingConfirmed EventType = "booking.confirmed"
	EventBookingCancelled EventType = "booking.cancelled"
	EventMessagePosted    EventType = "message.posted"
)

// Event describes a successful transition. Review events carry the driver's
// whole history so consumers can recompute the score on their own.
type Event struct {
	Type       EventType       `json:"type"`
	At         time.Time       `json:"at"`
	User       *models.User    `json:"user,omitempty"`
	Ride       *models.Ride    `json:"ride,omitempty"`
	Booking    *models.Booking `json:"booking,omitempty"`
	Message    *models.Message `json:"message,omitempty"`
	Rating     *models.Rating  `json:"rating,omitempty"`
	DriverID   string          `json:"driverId,omitempty"`
	Reviews    []models.Rating `json:"reviews,omitempty"`
	TrustScore float64         `json:"trustScore,omitempty"`
}

// Key is the partition key used when the event is published.
func (e Event) Key() string {
	switch {
	case e.DriverID != "":
		return e.DriverID
	case e.Ride != nil:
		return e.Ride.ID
	case e.Booking != nil:
		return e.Booking.RideID
	case e.Message != nil:
		return e.Message.RideID
	case e.User != nil:
		return e.User.ID
	}
	return string(e.Type)
}
