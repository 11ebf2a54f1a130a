package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/ridelink/internal/assistant"
	"github.com/example/ridelink/internal/discovery"
	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/state"
)

func (s *Service) Support(ctx context.Context, question string, history []assistant.Turn) assistant.SupportReply {
	return s.assistant.Support(ctx, question, history)
}

func (s *Service) PlanTrip(ctx context.Context, req assistant.TripRequest) assistant.TripPlan {
	st := s.snapshot()
	rides := discovery.Route(st.Rides, st.Users, req.From, req.To)
	var journey time.Duration
	if s.eta != nil {
		if d, err := s.eta.Journey(ctx, req.From, req.To); err == nil {
			journey = d
		}
	}
	return s.assistant.PlanTrip(ctx, req, assistant.RouteFactsFrom(rides, st.Users, journey))
}

// VoiceResponse is the agent's answer to one spoken turn.
type VoiceResponse struct {
	Intent  assistant.VoiceIntent `json:"intent"`
	Reply   string                `json:"reply"`
	Rides   []Listing             `json:"rides,omitempty"`
	Booking *models.Booking       `json:"booking,omitempty"`
}

const voiceOptions = 3

// Voice interprets a transcript turn and carries out the search or booking
// it asks for.
func (s *Service) Voice(ctx context.Context, userID, transcript string, history []assistant.Turn) VoiceResponse {
	in := s.assistant.Interpret(ctx, transcript, history, s.now())
	resp := VoiceResponse{Intent: in, Reply: in.Reply}

	switch in.Action {
	case assistant.ActionFindRides:
		found := s.Search(ctx, SearchInput{
			Criteria: models.SearchCriteria{From: in.From, To: in.To, Date: in.Date, Seats: 1},
			Sort:     discovery.SortTrustDesc,
		})
		resp.Rides = found
		resp.Reply = describeOptions(found)
	case assistant.ActionBookRide:
		b, err := s.Book(ctx, userID, in.RideID, 1)
		switch {
		case err == nil:
			resp.Booking = &b
			resp.Reply = fmt.Sprintf("Great! Your ride with ID %s has been booked.", in.RideID)
		case errors.Is(err, state.ErrRideNotFound):
			resp.Reply = fmt.Sprintf("I couldn't find a ride with the ID %s. Please try again.", in.RideID)
		default:
			resp.Reply = fmt.Sprintf("I couldn't book ride %s: %v.", in.RideID, err)
		}
	}
	if resp.Reply == "" {
		resp.Reply = assistant.VoicePrompt
	}
	return resp
}

func describeOptions(rides []Listing) string {
	if len(rides) == 0 {
		return "I'm sorry, I couldn't find any rides for that route on that date. Would you like to try another date?"
	}
	top := rides[:min(voiceOptions, len(rides))]
	var b strings.Builder
	fmt.Fprintf(&b, "I found %d rides. Here are the top %d:\n", len(rides), len(top))
	for i, r := range top {
		name := "an unknown driver"
		if r.Driver != nil {
			name = r.Driver.Name
		}
		fmt.Fprintf(&b, "Option %d is with driver %s, leaving at %s for %d rupees. To book this, say 'book ride %s'.\n",
			i+1, name, r.DepartureTime, r.PricePerSeat, r.ID)
	}
	b.WriteString("Which one would you like?")
	return b.String()
}
