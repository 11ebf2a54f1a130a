package marketplace

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/ridelink/internal/discovery"
	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/observability"
	"github.com/example/ridelink/internal/scores"
	"github.com/example/ridelink/internal/state"
	"github.com/example/ridelink/internal/trust"
)

// DriverCard is the public view of a driver shown next to a ride.
type DriverCard struct {
	ID               string                  `json:"id"`
	Name             string                  `json:"name"`
	AvatarURL        string                  `json:"avatarUrl"`
	Gender           models.Gender           `json:"gender"`
	VerificationType models.VerificationType `json:"verificationType"`
	IsVerified       bool                    `json:"isVerified"`
	TrustScore       float64                 `json:"trustScore"`
	ReviewCount      int                     `json:"reviewCount"`
}

func cardOf(u models.User) *DriverCard {
	return &DriverCard{
		ID:               u.ID,
		Name:             u.Name,
		AvatarURL:        u.AvatarURL,
		Gender:           u.Gender,
		VerificationType: u.VerificationType,
		IsVerified:       u.IsVerified,
		TrustScore:       u.TrustScore,
		ReviewCount:      len(u.Reviews),
	}
}

// Listing is a ride together with its driver, nil when the driver is unknown.
type Listing struct {
	models.Ride
	Driver *DriverCard `json:"driver"`
}

func listings(st state.State, rides []models.Ride) []Listing {
	out := make([]Listing, 0, len(rides))
	for _, r := range rides {
		l := Listing{Ride: r}
		if d, ok := st.User(r.DriverID); ok {
			l.Driver = cardOf(d)
		}
		out = append(out, l)
	}
	return out
}

type SearchInput struct {
	Criteria models.SearchCriteria
	Filters  discovery.FilterState
	Sort     discovery.SortKey
}

func (s *Service) Search(ctx context.Context, in SearchInput) []Listing {
	st := s.snapshot()
	res := discovery.Discover(st.Rides, st.Users, in.Criteria, in.Filters, in.Sort)

	observability.SearchesTotal.Inc()
	observability.SearchResults.Observe(float64(len(res.Rides)))
	for _, w := range res.Warnings {
		observability.DanglingDriverRefs.Inc()
		s.logger.Warn("ride references unknown driver", zap.String("ride_id", w.RideID), zap.String("driver_id", w.DriverID), zap.String("reason", w.Reason))
	}
	return listings(st, res.Rides)
}

type RideInput struct {
	From                 string     `json:"from"`
	To                   string     `json:"to"`
	DepartureDate        string     `json:"departureDate"`
	DepartureTime        string     `json:"departureTime"`
	EstimatedArrivalTime string     `json:"estimatedArrivalTime"`
	PricePerSeat         int        `json:"pricePerSeat"`
	AvailableSeats       int        `json:"availableSeats"`
	Car                  models.Car `json:"car"`
	Amenities            []string   `json:"amenities"`
}

// PublishRide offers a new ride. A missing arrival time is estimated from
// the journey time between the two cities.
func (s *Service) PublishRide(ctx context.Context, driverID string, in RideInput) (models.Ride, error) {
	r := models.Ride{
		ID:                   s.newID(),
		DriverID:             driverID,
		From:                 in.From,
		To:                   in.To,
		DepartureDate:        in.DepartureDate,
		DepartureTime:        in.DepartureTime,
		EstimatedArrivalTime: in.EstimatedArrivalTime,
		PricePerSeat:         in.PricePerSeat,
		AvailableSeats:       in.AvailableSeats,
		Car:                  in.Car,
		Amenities:            in.Amenities,
	}
	if r.EstimatedArrivalTime == "" {
		r.EstimatedArrivalTime = s.estimateArrival(ctx, r)
	}
	_, ev, err := s.apply(ctx, state.PublishRide{Ride: r, At: s.now()})
	if err != nil {
		return models.Ride{}, err
	}
	s.logger.Info("ride published", zap.String("ride_id", ev.Ride.ID), zap.String("driver_id", driverID),
		zap.String("from", ev.Ride.From), zap.String("to", ev.Ride.To))
	return *ev.Ride, nil
}

// estimateArrival returns "" when either city or the departure time is unknown.
func (s *Service) estimateArrival(ctx context.Context, r models.Ride) string {
	if s.eta == nil {
		return ""
	}
	h, m, err := discovery.ParseClock(r.DepartureTime)
	if err != nil {
		return ""
	}
	d, err := s.eta.Journey(ctx, r.From, r.To)
	if err != nil {
		return ""
	}
	dep := time.Date(2000, 1, 1, h, m, 0, 0, time.UTC)
	return dep.Add(d).Format("03:04 PM")
}

type RideDetails struct {
	Listing
	Reviews []models.Rating `json:"reviews"`
	Trust   trust.Breakdown `json:"trust"`
	Journey string          `json:"journey,omitempty"`
}

func (s *Service) RideDetails(ctx context.Context, rideID string) (RideDetails, error) {
	st := s.snapshot()
	r, ok := st.Ride(rideID)
	if !ok {
		return RideDetails{}, state.ErrRideNotFound
	}
	d := RideDetails{Listing: listings(st, []models.Ride{r})[0], Reviews: []models.Rating{}}
	if driver, ok := st.User(r.DriverID); ok {
		d.Reviews = driver.Reviews
		d.Trust = trust.Explain(driver.Reviews)
	} else {
		observability.DanglingDriverRefs.Inc()
		s.logger.Warn("ride references unknown driver", zap.String("ride_id", r.ID), zap.String("driver_id", r.DriverID))
	}
	if s.eta != nil {
		if j, err := s.eta.Journey(ctx, r.From, r.To); err == nil {
			d.Journey = j.String()
		}
	}
	return d, nil
}

// BookedRide is one of a passenger's bookings.
type BookedRide struct {
	Booking models.Booking `json:"booking"`
	Ride    Listing        `json:"ride"`
	Rated   bool           `json:"rated"`
	CanRate bool           `json:"canRate"`
}

type MyRides struct {
	Offered []models.Ride `json:"offered"`
	Booked  []BookedRide  `json:"booked"`
}

func (s *Service) MyRides(ctx context.Context, userID string) (MyRides, error) {
	st := s.snapshot()
	if _, ok := st.User(userID); !ok {
		return MyRides{}, state.ErrUserNotFound
	}
	out := MyRides{Offered: st.RidesOfferedBy(userID), Booked: []BookedRide{}}
	if out.Offered == nil {
		out.Offered = []models.Ride{}
	}
	for _, b := range st.BookingsOf(userID) {
		r, ok := st.Ride(b.RideID)
		if !ok {
			continue
		}
		rated := st.HasRated(b.RideID, userID)
		out.Booked = append(out.Booked, BookedRide{
			Booking: b,
			Ride:    listings(st, []models.Ride{r})[0],
			Rated:   rated,
			CanRate: !rated && b.Status == models.BookingConfirmed,
		})
	}
	return out, nil
}

// TopDrivers reads the score index.
func (s *Service) TopDrivers(ctx context.Context, limit int) ([]scores.Entry, error) {
	if limit <= 0 || limit > 100 {
		return nil, ErrInvalidLimit
	}
	return s.scores.Top(ctx, limit)
}
