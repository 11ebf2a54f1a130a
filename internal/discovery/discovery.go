// Package discovery filters and ranks ride offers for a search.
package discovery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/ridelink/internal/models"
)

type SortKey string

const (
	SortTrustDesc    SortKey = "trust-desc"
	SortPriceAsc     SortKey = "price-asc"
	SortPriceDesc    SortKey = "price-desc"
	SortDepartureAsc SortKey = "departure-asc"
)

// ParseSortKey maps an empty or unknown key to SortTrustDesc.
func ParseSortKey(v string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(v))); k {
	case SortPriceAsc, SortPriceDesc, SortDepartureAsc, SortTrustDesc:
		return k
	}
	return SortTrustDesc
}

// FilterState holds the optional toggles of a search. The zero value
// filters nothing beyond the search criteria.
type FilterState struct {
	MaxPrice     *int         `json:"maxPrice,omitempty"`
	TimeBuckets  []TimeBucket `json:"timeBuckets,omitempty"`
	VerifiedOnly bool         `json:"verifiedOnly"`
	WomenOnly    bool         `json:"womenOnly"`
}

func (f FilterState) needsDriver() bool { return f.VerifiedOnly || f.WomenOnly }

// Warning reports a data-integrity problem found while searching. The
// affected ride is still returned.
type Warning struct {
	RideID   string `json:"rideId"`
	DriverID string `json:"driverId"`
	Reason   string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("ride %s: %s (driver %s)", w.RideID, w.Reason, w.DriverID)
}

const reasonMissingDriver = "driver not found"

type Result struct {
	Rides    []models.Ride `json:"rides"`
	Warnings []Warning     `json:"-"`
}

// Discover returns the rides matching criteria and filters, ordered by
// key. Inputs are never modified.
func Discover(rides []models.Ride, users []models.User, c models.SearchCriteria, f FilterState, key SortKey) Result {
	drivers := indexUsers(users)
	seats := c.Seats
	if seats < 1 {
		seats = 1
	}
	from := normCity(c.From)
	to := normCity(c.To)
	date := strings.TrimSpace(c.Date)

	var res Result
	for _, r := range rides {
		if normCity(r.From) != from || normCity(r.To) != to {
			continue
		}
		if strings.TrimSpace(r.DepartureDate) != date {
			continue
		}
		if r.AvailableSeats < seats {
			continue
		}
		if f.MaxPrice != nil && r.PricePerSeat > *f.MaxPrice {
			continue
		}
		if len(f.TimeBuckets) > 0 && !inAnyBucket(r.DepartureTime, f.TimeBuckets) {
			continue
		}
		d, ok := drivers[r.DriverID]
		if !ok {
			res.Warnings = append(res.Warnings, Warning{RideID: r.ID, DriverID: r.DriverID, Reason: reasonMissingDriver})
		}
		if f.needsDriver() && !driverAllowed(d, ok, f) {
			continue
		}
		res.Rides = append(res.Rides, r)
	}

	Sort(res.Rides, drivers, key)
	return res
}

// Route returns rides on a route regardless of date or seats, ranked by
// trust. Used where the caller has no date yet.
func Route(rides []models.Ride, users []models.User, from, to string) []models.Ride {
	drivers := indexUsers(users)
	var out []models.Ride
	for _, r := range rides {
		if normCity(r.From) == normCity(from) && normCity(r.To) == normCity(to) {
			out = append(out, r)
		}
	}
	Sort(out, drivers, SortTrustDesc)
	return out
}

// Sort orders rides in place, keeping the input order on ties.
func Sort(rides []models.Ride, drivers map[string]models.User, key SortKey) {
	var less func(a, b models.Ride) bool
	switch key {
	case SortPriceAsc:
		less = func(a, b models.Ride) bool { return a.PricePerSeat < b.PricePerSeat }
	case SortPriceDesc:
		less = func(a, b models.Ride) bool { return a.PricePerSeat > b.PricePerSeat }
	case SortDepartureAsc:
		less = func(a, b models.Ride) bool {
			ma, mb := minutesOfDay(a.DepartureTime), minutesOfDay(b.DepartureTime)
			if ma < 0 || mb < 0 {
				// unparseable times go last
				return mb < 0 && ma >= 0
			}
			return ma < mb
		}
	default:
		less = func(a, b models.Ride) bool {
			return trustOf(drivers, a.DriverID) > trustOf(drivers, b.DriverID)
		}
	}
	sort.SliceStable(rides, func(i, j int) bool { return less(rides[i], rides[j]) })
}

// IndexUsers builds the driver lookup used by Sort.
func IndexUsers(users []models.User) map[string]models.User { return indexUsers(users) }

func indexUsers(users []models.User) map[string]models.User {
	m := make(map[string]models.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return m
}

// a ride whose driver is unknown ranks lowest
func trustOf(drivers map[string]models.User, id string) float64 {
	if d, ok := drivers[id]; ok {
		return d.TrustScore
	}
	return 0
}

func driverAllowed(d models.User, found bool, f FilterState) bool {
	if !found {
		return false
	}
	if f.VerifiedOnly && !d.IsVerified {
		return false
	}
	if f.WomenOnly && d.Gender != models.GenderFemale {
		return false
	}
	return true
}

func inAnyBucket(departure string, buckets []TimeBucket) bool {
	h, _, err := ParseClock(departure)
	if err != nil {
		return false
	}
	for _, b := range buckets {
		if b.Contains(h) {
			return true
		}
	}
	return false
}

func normCity(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
