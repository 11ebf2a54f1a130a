package assistant

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/example/ridelink/internal/discovery"
	"github.com/example/ridelink/internal/models"
)

type Priority string

const (
	PriorityLowestCost   Priority = "Lowest Cost"
	PriorityFastest      Priority = "Fastest Journey"
	PriorityHighestRated Priority = "Highest Rated Driver"
	PriorityFlexible     Priority = "Flexible Timing"
)

var ErrBadPriority = errors.New("unknown trip priority")

// ParsePriority is case-insensitive; empty means lowest cost.
func ParsePriority(s string) (Priority, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PriorityLowestCost, nil
	}
	for _, p := range []Priority{PriorityLowestCost, PriorityFastest, PriorityHighestRated, PriorityFlexible} {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrBadPriority, s)
}

type TripRequest struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Priority Priority `json:"priority"`
}

// RouteFacts is what the planner knows about the route locally.
type RouteFacts struct {
	Rides   []models.Ride // already restricted to the route
	Drivers map[string]models.User
	Journey time.Duration // zero if unknown
}

type TripPlan struct {
	BestTimeToTravel string `json:"bestTimeToTravel"`
	EstimatedCost    string `json:"estimatedCost"`
	RouteInsights    string `json:"routeInsights"`
	DriverInsights   string `json:"driverInsights"`
	Source           Source `json:"source"`
}

const planPrompt = `You are a travel planner for RideLink, an intercity carpooling platform in India.
A traveller wants to go from %s to %s and their priority is %q.
%s
Rides currently listed on this route:
%s

Respond with a JSON object {"bestTimeToTravel": string, "estimatedCost": string, "routeInsights": string, "driverInsights": string}.
Every field must be a short, non-empty sentence. Prices are in Indian rupees per seat.`

func (a *Assistant) PlanTrip(ctx context.Context, req TripRequest, facts RouteFacts) TripPlan {
	journey := "Typical journey time is unknown."
	if facts.Journey > 0 {
		journey = fmt.Sprintf("Typical driving time is about %s.", formatDuration(facts.Journey))
	}
	var out struct {
		BestTimeToTravel string `json:"bestTimeToTravel"`
		EstimatedCost    string `json:"estimatedCost"`
		RouteInsights    string `json:"routeInsights"`
		DriverInsights   string `json:"driverInsights"`
	}
	prompt := fmt.Sprintf(planPrompt, req.From, req.To, req.Priority, journey, rideLines(facts))
	err := a.object(ctx, prompt, &out, func() error {
		return required(map[string]string{
			"bestTimeToTravel": out.BestTimeToTravel,
			"estimatedCost":    out.EstimatedCost,
			"routeInsights":    out.RouteInsights,
			"driverInsights":   out.DriverInsights,
		})
	})
	if err != nil {
		a.fallback("plan", err)
		return localPlan(req, facts)
	}
	return TripPlan{
		BestTimeToTravel: out.BestTimeToTravel,
		EstimatedCost:    out.EstimatedCost,
		RouteInsights:    out.RouteInsights,
		DriverInsights:   out.DriverInsights,
		Source:           SourceAI,
	}
}

func rideLines(f RouteFacts) string {
	if len(f.Rides) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(f.Rides))
	for _, r := range f.Rides {
		d := f.Drivers[r.DriverID]
		lines = append(lines, fmt.Sprintf("- %s on %s at %s, Rs %d/seat, %d seats, driver %s (trust %.1f)",
			r.ID, r.DepartureDate, r.DepartureTime, r.PricePerSeat, r.AvailableSeats, d.Name, d.TrustScore))
	}
	return strings.Join(lines, "\n")
}

func localPlan(req TripRequest, f RouteFacts) TripPlan {
	p := TripPlan{Source: SourceFallback}
	if f.Journey > 0 {
		p.RouteInsights = fmt.Sprintf("%s to %s is roughly %s by road.", req.From, req.To, formatDuration(f.Journey))
	} else {
		p.RouteInsights = fmt.Sprintf("We don't have road data for %s to %s yet; allow extra time for breaks.", req.From, req.To)
	}

	if len(f.Rides) == 0 {
		p.BestTimeToTravel = "No rides are listed on this route yet. Check back closer to your travel date."
		p.EstimatedCost = "No fares available yet."
		p.DriverInsights = "No drivers currently offer this route."
		return p
	}

	byPrice := sortedBy(f, discovery.SortPriceAsc)
	lo, hi := byPrice[0].PricePerSeat, byPrice[len(byPrice)-1].PricePerSeat
	if lo == hi {
		p.EstimatedCost = fmt.Sprintf("About ₹%d per seat.", lo)
	} else {
		p.EstimatedCost = fmt.Sprintf("₹%d to ₹%d per seat.", lo, hi)
	}

	byTrust := sortedBy(f, discovery.SortTrustDesc)
	if best, ok := f.Drivers[byTrust[0].DriverID]; ok {
		p.DriverInsights = fmt.Sprintf("%s has the highest trust score on this route (%.1f).", best.Name, best.TrustScore)
	} else {
		p.DriverInsights = "Driver ratings are not available for this route."
	}

	byTime := sortedBy(f, discovery.SortDepartureAsc)
	switch req.Priority {
	case PriorityFastest:
		p.BestTimeToTravel = fmt.Sprintf("Leave early: the first departure is at %s on %s, ahead of city traffic.", byTime[0].DepartureTime, byTime[0].DepartureDate)
	case PriorityHighestRated:
		p.BestTimeToTravel = fmt.Sprintf("Travel on %s at %s with the most trusted driver.", byTrust[0].DepartureDate, byTrust[0].DepartureTime)
	case PriorityFlexible:
		p.BestTimeToTravel = fmt.Sprintf("Departures range from %s to %s, so pick whatever suits you.", byTime[0].DepartureTime, byTime[len(byTime)-1].DepartureTime)
	default:
		p.BestTimeToTravel = fmt.Sprintf("The cheapest seat leaves on %s at %s.", byPrice[0].DepartureDate, byPrice[0].DepartureTime)
	}
	return p
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

func sortedBy(f RouteFacts, key discovery.SortKey) []models.Ride {
	out := slices.Clone(f.Rides)
	discovery.Sort(out, f.Drivers, key)
	return out
}

// RouteFactsFrom indexes the drivers of rides already restricted to one route.
func RouteFactsFrom(rides []models.Ride, users []models.User, journey time.Duration) RouteFacts {
	return RouteFacts{Rides: rides, Drivers: discovery.IndexUsers(users), Journey: journey}
}
