package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/example/ridelink/internal/assistant"
	"github.com/example/ridelink/internal/discovery"
	"github.com/example/ridelink/internal/marketplace"
	"github.com/example/ridelink/internal/models"
)

var errBadRequest = errors.New("bad request")

const maxBody = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var in marketplace.SignUpInput
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.svc.SignUp(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.svc.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// parseSearch reads from, to, date, seats, maxPrice, times (comma separated
// buckets), verified, womenOnly and sort.
func parseSearch(r *http.Request) (marketplace.SearchInput, error) {
	q := r.URL.Query()
	in := marketplace.SearchInput{
		Criteria: models.SearchCriteria{From: q.Get("from"), To: q.Get("to"), Date: q.Get("date"), Seats: 1},
		Sort:     discovery.ParseSortKey(q.Get("sort")),
	}
	if in.Criteria.From == "" || in.Criteria.To == "" || in.Criteria.Date == "" {
		return in, fmt.Errorf("%w: from, to and date are required", errBadRequest)
	}
	if v := q.Get("seats"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return in, fmt.Errorf("%w: seats must be a number of at least 1", errBadRequest)
		}
		in.Criteria.Seats = n
	}
	if v := q.Get("maxPrice"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return in, fmt.Errorf("%w: maxPrice must be a non-negative number", errBadRequest)
		}
		in.Filters.MaxPrice = &n
	}
	if v := q.Get("times"); v != "" {
		for _, t := range strings.Split(v, ",") {
			b := discovery.TimeBucket(strings.TrimSpace(t))
			if !b.Valid() {
				return in, fmt.Errorf("%w: unknown time bucket %q", errBadRequest, t)
			}
			in.Filters.TimeBuckets = append(in.Filters.TimeBuckets, b)
		}
	}
	var err error
	if in.Filters.VerifiedOnly, err = boolParam(q.Get("verified")); err != nil {
		return in, err
	}
	if in.Filters.WomenOnly, err = boolParam(q.Get("womenOnly")); err != nil {
		return in, err
	}
	return in, nil
}

func boolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %q is not a boolean", errBadRequest, v)
	}
	return b, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	in, err := parseSearch(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rides := s.svc.Search(r.Context(), in)
	writeJSON(w, http.StatusOK, map[string]any{"rides": rides, "count": len(rides)})
}

func (s *Server) handlePublishRide(w http.ResponseWriter, r *http.Request) {
	var in marketplace.RideInput
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	ride, err := s.svc.PublishRide(r.Context(), userIDFromContext(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

func (s *Server) handleRideDetails(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.RideDetails(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Summary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Seats int `json:"seats"`
	}
	if r.ContentLength != 0 {
		if err := decode(w, r, &in); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	b, err := s.svc.Book(r.Context(), userIDFromContext(r.Context()), mux.Vars(r)["id"], in.Seats)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Cancel(r.Context(), userIDFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var in marketplace.ReviewInput
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	card, err := s.svc.SubmitReview(r.Context(), userIDFromContext(r.Context()), mux.Vars(r)["id"], in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Conversation(r.Context(), mux.Vars(r)["id"], userIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Text string `json:"text"`
	}
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.PostMessage(r.Context(), mux.Vars(r)["id"], userIDFromContext(r.Context()), in.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleMyRides(w http.ResponseWriter, r *http.Request) {
	mine, err := s.svc.MyRides(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mine)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.UserProfile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleTopDrivers(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: limit must be a number", errBadRequest))
			return
		}
		limit = n
	}
	top, err := s.svc.TopDrivers(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drivers": top})
}

func (s *Server) handleSupport(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Message string           `json:"message"`
		History []assistant.Turn `json:"history"`
	}
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(in.Message) == "" {
		s.writeError(w, r, fmt.Errorf("%w: message is required", errBadRequest))
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Support(r.Context(), in.Message, in.History))
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var in struct {
		From     string `json:"from"`
		To       string `json:"to"`
		Priority string `json:"priority"`
	}
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(in.From) == "" || strings.TrimSpace(in.To) == "" {
		s.writeError(w, r, fmt.Errorf("%w: from and to are required", errBadRequest))
		return
	}
	p, err := assistant.ParsePriority(in.Priority)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.PlanTrip(r.Context(), assistant.TripRequest{From: in.From, To: in.To, Priority: p}))
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Transcript string           `json:"transcript"`
		History    []assistant.Turn `json:"history"`
	}
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Voice(r.Context(), userIDFromContext(r.Context()), in.Transcript, in.History))
}
