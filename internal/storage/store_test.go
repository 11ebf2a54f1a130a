package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/state"
)

func TestMemoryStoreRecordsTransitions(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	at := time.Date(2025, 5, 30, 9, 0, 0, 0, time.UTC)

	var s state.State
	apply := func(a state.Action) {
		t.Helper()
		next, ev, err := state.Apply(s, a)
		require.NoError(t, err)
		require.NoError(t, Record(ctx, st, next, ev))
		s = next
	}

	apply(state.SignUp{At: at, User: models.User{ID: "d", Name: "D", Email: "d@example.com", PasswordHash: "hash", VerificationType: models.VerificationAadhaar}})
	apply(state.SignUp{At: at, User: models.User{ID: "p", Name: "P", Email: "p@example.com", VerificationType: models.VerificationLinkedIn}})
	apply(state.PublishRide{At: at, Ride: models.Ride{ID: "r1", DriverID: "d", From: "Pune", To: "Mumbai",
		DepartureDate: "2025-06-01", DepartureTime: "07:00 AM", EstimatedArrivalTime: "10:30 AM", PricePerSeat: 500, AvailableSeats: 2}})
	apply(state.BookSeats{At: at, Booking: models.Booking{ID: "b1", RideID: "r1", PassengerID: "p", Seats: 1}})
	apply(state.SubmitReview{At: at, Rating: models.Rating{ID: "rv1", RideID: "r1", RaterID: "p", Rating: 5, Comment: "smooth"}})
	apply(state.PostMessage{Message: models.Message{ID: "m1", RideID: "r1", SenderID: "p", Text: "thanks!", Timestamp: at}})

	loaded, err := st.Load(ctx)
	require.NoError(t, err)

	d, ok := loaded.User("d")
	require.True(t, ok)
	assert.Equal(t, "hash", d.PasswordHash)
	require.Len(t, d.Reviews, 1)
	assert.Equal(t, s.Users[0].TrustScore, d.TrustScore)

	r, ok := loaded.Ride("r1")
	require.True(t, ok)
	assert.Equal(t, 1, r.AvailableSeats)

	b, ok := loaded.Booking("b1")
	require.True(t, ok)
	assert.Equal(t, models.BookingConfirmed, b.Status)

	assert.Len(t, loaded.Conversation("r1").Messages, 1)
}

func TestSeedKeepsRideOrder(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	s := state.State{
		Users: []models.User{{ID: "d"}},
		Rides: []models.Ride{{ID: "newest", DriverID: "d"}, {ID: "older", DriverID: "d"}},
	}
	require.NoError(t, Seed(ctx, st, s))
	loaded, err := st.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Rides, 2)
	assert.Equal(t, "newest", loaded.Rides[0].ID)
}

func TestMemoryStoreBookingWithUnknownRide(t *testing.T) {
	st := NewMemoryStore()
	err := st.SaveBookingWithRide(context.Background(), models.Booking{ID: "b1", RideID: "gone"}, models.Ride{ID: "gone"})
	assert.ErrorIs(t, err, state.ErrRideNotFound)

	loaded, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded.Bookings)
}
