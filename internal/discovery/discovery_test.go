package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ridelink/internal/models"
)

func ids(rides []models.Ride) []string {
	out := make([]string, 0, len(rides))
	for _, r := range rides {
		out = append(out, r.ID)
	}
	return out
}

func ride(id, driver string, price int, dep string) models.Ride {
	return models.Ride{
		ID: id, DriverID: driver, From: "Chennai", To: "Bangalore",
		DepartureDate: "2025-06-01", DepartureTime: dep, PricePerSeat: price, AvailableSeats: 3,
	}
}

var criteria = models.SearchCriteria{From: "Chennai", To: "Bangalore", Date: "2025-06-01", Seats: 1}

func TestDiscoverCaseInsensitiveAndSeats(t *testing.T) {
	rides := []models.Ride{
		{ID: "a", DriverID: "d1", From: "Chennai", To: "Bangalore", DepartureDate: "2025-06-01", AvailableSeats: 2, PricePerSeat: 850},
		{ID: "b", DriverID: "d1", From: "chennai", To: "bangalore", DepartureDate: "2025-06-01", AvailableSeats: 0, PricePerSeat: 700},
	}
	users := []models.User{{ID: "d1", TrustScore: 4}}

	res := Discover(rides, users, criteria, FilterState{}, SortTrustDesc)
	assert.Equal(t, []string{"a"}, ids(res.Rides))
	assert.Empty(t, res.Warnings)
}

func TestDiscoverExactDateAndRoute(t *testing.T) {
	rides := []models.Ride{
		ride("a", "d1", 800, "06:00 AM"),
		{ID: "b", DriverID: "d1", From: "Chennai", To: "Bangalore", DepartureDate: "2025-06-02", AvailableSeats: 3},
		{ID: "c", DriverID: "d1", From: "Chennai", To: "Mysore", DepartureDate: "2025-06-01", AvailableSeats: 3},
		{ID: "d", DriverID: "d1", From: "Chennai Central", To: "Bangalore", DepartureDate: "2025-06-01", AvailableSeats: 3},
	}
	users := []models.User{{ID: "d1"}}
	res := Discover(rides, users, criteria, FilterState{}, SortTrustDesc)
	assert.Equal(t, []string{"a"}, ids(res.Rides))
}

func TestDiscoverRequestedSeats(t *testing.T) {
	rides := []models.Ride{ride("a", "d1", 800, "06:00 AM")}
	users := []models.User{{ID: "d1"}}
	c := criteria
	c.Seats = 4
	assert.Empty(t, Discover(rides, users, c, FilterState{}, SortTrustDesc).Rides)
	c.Seats = 0 // treated as 1
	assert.Len(t, Discover(rides, users, c, FilterState{}, SortTrustDesc).Rides, 1)
}

func TestDiscoverPriceSort(t *testing.T) {
	rides := []models.Ride{ride("r900", "d1", 900, "09:00 AM"), ride("r700", "d2", 700, "07:00 AM")}
	users := []models.User{{ID: "d1"}, {ID: "d2"}}

	asc := Discover(rides, users, criteria, FilterState{}, SortPriceAsc)
	assert.Equal(t, []string{"r700", "r900"}, ids(asc.Rides))

	desc := Discover(rides, users, criteria, FilterState{}, SortPriceDesc)
	assert.Equal(t, []string{"r900", "r700"}, ids(desc.Rides))

	assert.Equal(t, "r900", rides[0].ID, "input order must be preserved")
}

func TestDiscoverPriceCeiling(t *testing.T) {
	rides := []models.Ride{ride("r900", "d1", 900, "09:00 AM"), ride("r700", "d1", 700, "07:00 AM")}
	users := []models.User{{ID: "d1"}}
	ceiling := 800
	res := Discover(rides, users, criteria, FilterState{MaxPrice: &ceiling}, SortTrustDesc)
	assert.Equal(t, []string{"r700"}, ids(res.Rides))
}

func TestDiscoverTimeBuckets(t *testing.T) {
	rides := []models.Ride{
		ride("midnight", "d1", 500, "12:00 AM"),
		ride("noon", "d1", 500, "12:00 PM"),
		ride("evening", "d1", 500, "07:30 PM"),
		ride("garbled", "d1", 500, "soon"),
	}
	users := []models.User{{ID: "d1"}}

	early := Discover(rides, users, criteria, FilterState{TimeBuckets: []TimeBucket{BeforeSix}}, SortTrustDesc)
	assert.Equal(t, []string{"midnight"}, ids(early.Rides))

	afternoon := Discover(rides, users, criteria, FilterState{TimeBuckets: []TimeBucket{Afternoon}}, SortTrustDesc)
	assert.Equal(t, []string{"noon"}, ids(afternoon.Rides))

	either := Discover(rides, users, criteria, FilterState{TimeBuckets: []TimeBucket{Afternoon, Evening}}, SortTrustDesc)
	assert.Equal(t, []string{"noon", "evening"}, ids(either.Rides))
}

func TestDiscoverDriverPredicates(t *testing.T) {
	rides := []models.Ride{ride("a", "priya", 800, "06:00 AM"), ride("b", "arjun", 800, "06:00 AM"), ride("c", "vikram", 800, "06:00 AM")}
	users := []models.User{
		{ID: "priya", Gender: models.GenderFemale, IsVerified: true, TrustScore: 4.8},
		{ID: "arjun", Gender: models.GenderMale, IsVerified: true, TrustScore: 4.5},
		{ID: "vikram", Gender: models.GenderMale, IsVerified: false, TrustScore: 3.2},
	}
	women := Discover(rides, users, criteria, FilterState{WomenOnly: true}, SortTrustDesc)
	assert.Equal(t, []string{"a"}, ids(women.Rides))

	verified := Discover(rides, users, criteria, FilterState{VerifiedOnly: true}, SortTrustDesc)
	assert.Equal(t, []string{"a", "b"}, ids(verified.Rides))
}

func TestDiscoverTrustSortIsStable(t *testing.T) {
	rides := []models.Ride{
		ride("first", "d1", 800, "06:00 AM"),
		ride("second", "d2", 800, "06:00 AM"),
		ride("top", "d3", 800, "06:00 AM"),
		ride("third", "d1", 800, "06:00 AM"),
	}
	users := []models.User{{ID: "d1", TrustScore: 4.0}, {ID: "d2", TrustScore: 4.0}, {ID: "d3", TrustScore: 4.9}}
	res := Discover(rides, users, criteria, FilterState{}, SortKey(""))
	assert.Equal(t, []string{"top", "first", "second", "third"}, ids(res.Rides))
}

func TestDiscoverMissingDriverRanksLastAndWarns(t *testing.T) {
	rides := []models.Ride{ride("orphan", "ghost", 800, "06:00 AM"), ride("a", "d1", 800, "06:00 AM")}
	users := []models.User{{ID: "d1", TrustScore: 1.0}}

	res := Discover(rides, users, criteria, FilterState{}, SortTrustDesc)
	assert.Equal(t, []string{"a", "orphan"}, ids(res.Rides))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "orphan", res.Warnings[0].RideID)
	assert.Equal(t, "ghost", res.Warnings[0].DriverID)
}

func TestDiscoverDepartureSort(t *testing.T) {
	rides := []models.Ride{
		ride("late", "d1", 800, "07:30 PM"),
		ride("bad", "d1", 800, "??"),
		ride("early", "d1", 800, "12:15 AM"),
		ride("noon", "d1", 800, "12:00 PM"),
		ride("h24", "d1", 800, "09:00"),
	}
	users := []models.User{{ID: "d1"}}
	res := Discover(rides, users, criteria, FilterState{}, SortDepartureAsc)
	assert.Equal(t, []string{"early", "h24", "noon", "late", "bad"}, ids(res.Rides))
}

func TestRouteIgnoresDateAndSeats(t *testing.T) {
	rides := []models.Ride{
		{ID: "a", DriverID: "d1", From: "Chennai", To: "Bangalore", DepartureDate: "2025-01-01"},
		{ID: "b", DriverID: "d2", From: "CHENNAI", To: "bangalore", DepartureDate: "2025-02-01"},
		{ID: "c", DriverID: "d2", From: "Bangalore", To: "Chennai"},
	}
	users := []models.User{{ID: "d1", TrustScore: 3}, {ID: "d2", TrustScore: 4}}
	assert.Equal(t, []string{"b", "a"}, ids(Route(rides, users, "chennai", "Bangalore")))
}

func TestParseSortKey(t *testing.T) {
	assert.Equal(t, SortPriceAsc, ParseSortKey(" PRICE-ASC "))
	assert.Equal(t, SortTrustDesc, ParseSortKey(""))
	assert.Equal(t, SortTrustDesc, ParseSortKey("cheapest"))
}
