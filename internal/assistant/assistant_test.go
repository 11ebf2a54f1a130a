package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ridelink/internal/models"
)

type fakeGenerator struct {
	text    string
	json    string
	err     error
	block   bool
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return f.answer(ctx, prompt, f.text)
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return f.answer(ctx, prompt, f.json)
}

func (f *fakeGenerator) answer(ctx context.Context, prompt, out string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return out, f.err
}

var reviews = []models.Rating{
	{ID: "r1", Rating: 5, Comment: "Excellent and safe driver"},
	{ID: "r2", Rating: 4, Comment: "Smooth ride, a bit late"},
}

func TestSummarizeNoReviews(t *testing.T) {
	g := &fakeGenerator{}
	s := New(g, time.Second, nil).SummarizeReviews(context.Background(), nil)
	assert.Equal(t, NoReviewsSummary, s.Summary)
	assert.Equal(t, SourceLocal, s.Source)
	assert.Empty(t, g.prompts)
}

func TestSummarizeUsesModel(t *testing.T) {
	g := &fakeGenerator{json: "```json\n{\"summary\":\"Reliable and safe.\",\"sentiment\":\"positive\"}\n```"}
	s := New(g, time.Second, nil).SummarizeReviews(context.Background(), reviews)
	assert.Equal(t, "Reliable and safe.", s.Summary)
	assert.Equal(t, SentimentPositive, s.Sentiment)
	assert.Equal(t, SourceAI, s.Source)
	require.Len(t, g.prompts, 1)
	assert.Contains(t, g.prompts[0], `Rating: 5/5 - "Excellent and safe driver"`)
}

func TestSummarizeFallsBack(t *testing.T) {
	cases := map[string]*fakeGenerator{
		"error":        {err: errors.New("quota")},
		"bad json":     {json: "not json"},
		"bad schema":   {json: `{"summary":"ok","sentiment":"ecstatic"}`},
		"missing text": {json: `{"summary":" ","sentiment":"mixed"}`},
		"extra field":  {json: `{"summary":"ok","sentiment":"mixed","score":5}`},
		"timeout":      {block: true},
	}
	for name, g := range cases {
		t.Run(name, func(t *testing.T) {
			s := New(g, 20*time.Millisecond, nil).SummarizeReviews(context.Background(), reviews)
			assert.Equal(t, SourceFallback, s.Source)
			assert.True(t, strings.HasPrefix(s.Summary, SummaryUnavailable))
			assert.Contains(t, s.Summary, "2 review(s)")
			assert.Contains(t, s.Summary, "excellent")
			assert.Contains(t, s.Summary, "late")
			assert.Equal(t, SentimentPositive, s.Sentiment)
		})
	}
}

func TestSummarizeWithoutGenerator(t *testing.T) {
	s := New(nil, time.Second, nil).SummarizeReviews(context.Background(), []models.Rating{{Rating: 5, Comment: "great"}})
	assert.Equal(t, SourceFallback, s.Source)
	assert.Equal(t, SentimentPositive, s.Sentiment)
}

func TestSupport(t *testing.T) {
	g := &fakeGenerator{text: "  You can cancel from My Rides.  "}
	a := New(g, time.Second, nil)
	r := a.Support(context.Background(), "How do I cancel?", []Turn{{Role: "user", Text: "hi"}, {Role: "agent", Text: "Hello!"}})
	assert.Equal(t, "You can cancel from My Rides.", r.Reply)
	assert.Equal(t, SourceAI, r.Source)
	assert.Contains(t, g.prompts[0], "intercity carpooling platform in India")
	assert.Contains(t, g.prompts[0], "Agent: Hello!\nUser: How do I cancel?")

	g.text = ""
	r = a.Support(context.Background(), "anyone there?", nil)
	assert.Equal(t, SupportUnavailable, r.Reply)
	assert.Equal(t, SourceFallback, r.Source)
}

func planFacts() RouteFacts {
	users := []models.User{
		{ID: "d1", Name: "Priya Sharma", TrustScore: 4.8},
		{ID: "d2", Name: "Arjun Verma", TrustScore: 4.5},
	}
	rides := []models.Ride{
		{ID: "ride_1", DriverID: "d1", DepartureDate: "2025-06-02", DepartureTime: "06:00 AM", PricePerSeat: 850},
		{ID: "ride_2", DriverID: "d2", DepartureDate: "2025-06-03", DepartureTime: "04:30 AM", PricePerSeat: 800},
	}
	return RouteFactsFrom(rides, users, 6*time.Hour+5*time.Minute)
}

func TestPlanTripUsesModel(t *testing.T) {
	g := &fakeGenerator{json: `{"bestTimeToTravel":"Early morning","estimatedCost":"₹800-₹850","routeInsights":"NH48","driverInsights":"Priya"}`}
	p := New(g, time.Second, nil).PlanTrip(context.Background(), TripRequest{From: "Chennai", To: "Bangalore", Priority: PriorityLowestCost}, planFacts())
	assert.Equal(t, SourceAI, p.Source)
	assert.Equal(t, "Early morning", p.BestTimeToTravel)
	assert.Contains(t, g.prompts[0], "about 6h 5m")
	assert.Contains(t, g.prompts[0], "ride_2 on 2025-06-03 at 04:30 AM, Rs 800/seat")
}

func TestPlanTripFallback(t *testing.T) {
	a := New(&fakeGenerator{json: `{"bestTimeToTravel":"x","estimatedCost":"","routeInsights":"y","driverInsights":"z"}`}, time.Second, nil)
	req := TripRequest{From: "Chennai", To: "Bangalore", Priority: PriorityFastest}
	p := a.PlanTrip(context.Background(), req, planFacts())
	assert.Equal(t, SourceFallback, p.Source)
	assert.Equal(t, "₹800 to ₹850 per seat.", p.EstimatedCost)
	assert.Contains(t, p.BestTimeToTravel, "04:30 AM")
	assert.Contains(t, p.DriverInsights, "Priya Sharma")
	assert.Contains(t, p.RouteInsights, "6h 5m")

	req.Priority = PriorityLowestCost
	p = a.PlanTrip(context.Background(), req, planFacts())
	assert.Contains(t, p.BestTimeToTravel, "2025-06-03")

	p = a.PlanTrip(context.Background(), req, RouteFacts{})
	assert.Contains(t, p.BestTimeToTravel, "No rides")
	assert.NotEmpty(t, p.EstimatedCost)
	assert.NotEmpty(t, p.DriverInsights)
	assert.NotEmpty(t, p.RouteInsights)
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("highest rated driver")
	require.NoError(t, err)
	assert.Equal(t, PriorityHighestRated, p)

	p, err = ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityLowestCost, p)

	_, err = ParsePriority("cheapest")
	assert.ErrorIs(t, err, ErrBadPriority)
}

func TestInterpretUsesModel(t *testing.T) {
	g := &fakeGenerator{json: `{"action":"findRides","from":"Chennai","to":"Bangalore","date":"2025-06-02","rideId":"","reply":"Searching"}`}
	in := New(g, time.Second, nil).Interpret(context.Background(), "chennai to bangalore tomorrow", nil, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, ActionFindRides, in.Action)
	assert.Equal(t, "2025-06-02", in.Date)
	assert.Equal(t, SourceAI, in.Source)
	assert.Contains(t, g.prompts[0], "Today's date is 2025-06-01")
}

func TestInterpretFallsBackLocally(t *testing.T) {
	today := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	a := New(&fakeGenerator{json: `{"action":"dance","reply":"ok"}`}, time.Second, nil)

	in := a.Interpret(context.Background(), "Please book ride ride_3", nil, today)
	assert.Equal(t, ActionBookRide, in.Action)
	assert.Equal(t, "ride_3", in.RideID)
	assert.Equal(t, SourceFallback, in.Source)

	in = a.Interpret(context.Background(), "I need a ride from new delhi to jaipur tomorrow", nil, today)
	assert.Equal(t, ActionFindRides, in.Action)
	assert.Equal(t, "New Delhi", in.From)
	assert.Equal(t, "Jaipur", in.To)
	assert.Equal(t, "2025-06-02", in.Date)

	in = a.Interpret(context.Background(), "from Chennai to Bangalore", nil, today)
	assert.Equal(t, ActionChat, in.Action)
	assert.Contains(t, in.Reply, "Chennai to Bangalore")

	in = a.Interpret(context.Background(), "hello?", nil, today)
	assert.Equal(t, ActionChat, in.Action)
	assert.Contains(t, in.Reply, VoicePrompt)
}

func TestInterpretRejectsBadDate(t *testing.T) {
	g := &fakeGenerator{json: `{"action":"findRides","from":"A","to":"B","date":"next friday","rideId":"","reply":""}`}
	in := New(g, time.Second, nil).Interpret(context.Background(), "hmm", nil, time.Now())
	assert.Equal(t, SourceFallback, in.Source)
}
