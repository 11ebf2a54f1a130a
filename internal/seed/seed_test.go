package seed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ridelink/internal/auth"
	"github.com/example/ridelink/internal/discovery"
	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/trust"
)

func TestDemoIsConsistent(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s, err := Demo(now)
	require.NoError(t, err)

	require.Len(t, s.Users, 5)
	require.Len(t, s.Rides, 5)
	for _, u := range s.Users {
		assert.Equal(t, trust.Compute(u.Reviews), u.TrustScore, u.ID)
	}
	priya, ok := s.UserByEmail("priya.sharma@example.com")
	require.True(t, ok)
	assert.NoError(t, auth.CheckPassword(priya.PasswordHash, DemoPassword))
	assert.Equal(t, "https://picsum.photos/seed/priya/200/200", priya.AvatarURL)

	vikram, _ := s.User("user_4")
	assert.Equal(t, 2.9, vikram.TrustScore)
	assert.False(t, vikram.IsVerified)

	r1, _ := s.Ride("ride_1")
	assert.Equal(t, "2025-06-02", r1.DepartureDate)
	for _, r := range s.Rides {
		_, ok := s.User(r.DriverID)
		assert.True(t, ok, "ride %s has a driver", r.ID)
	}

	assert.True(t, s.CanChat("ride_1", "user_passenger_1"))
	assert.Len(t, s.Conversation("ride_1").Messages, 2)
}

func TestDemoSearchTomorrow(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s, err := Demo(now)
	require.NoError(t, err)

	res := discovery.Discover(s.Rides, s.Users, models.SearchCriteria{From: "chennai", To: "bangalore", Date: "2025-06-02", Seats: 1}, discovery.FilterState{WomenOnly: true}, discovery.SortTrustDesc)
	require.Len(t, res.Rides, 1)
	assert.Equal(t, "ride_1", res.Rides[0].ID)
}
