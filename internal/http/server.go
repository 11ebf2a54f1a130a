package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/example/ridelink/internal/assistant"
	"github.com/example/ridelink/internal/auth"
	"github.com/example/ridelink/internal/chat"
	"github.com/example/ridelink/internal/discovery"
	"github.com/example/ridelink/internal/marketplace"
	"github.com/example/ridelink/internal/state"
)

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	Ready          map[string]ReadinessCheck
}

type Server struct {
	svc    *marketplace.Service
	hub    *chat.Hub
	logger *zap.Logger
	limits *limiterStore
	ready  map[string]ReadinessCheck
	mux    *mux.Router
}

func NewServer(svc *marketplace.Service, hub *chat.Hub, logger *zap.Logger, o Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, hub: hub, logger: logger, ready: o.Ready, mux: mux.NewRouter()}
	if o.RateLimitRPS > 0 && o.RateLimitBurst > 0 {
		s.limits = newLimiterStore(o.RateLimitRPS, o.RateLimitBurst)
	}
	s.routes()
	s.registerMiddleware()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/signup", s.handleSignUp).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	api.HandleFunc("/rides/search", s.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/rides", s.requireAuth(s.handlePublishRide)).Methods(http.MethodPost)
	api.HandleFunc("/rides/{id}", s.handleRideDetails).Methods(http.MethodGet)
	api.HandleFunc("/rides/{id}/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/rides/{id}/bookings", s.requireAuth(s.handleBook)).Methods(http.MethodPost)
	api.HandleFunc("/rides/{id}/reviews", s.requireAuth(s.handleReview)).Methods(http.MethodPost)
	api.HandleFunc("/rides/{id}/messages", s.requireAuth(s.handleConversation)).Methods(http.MethodGet)
	api.HandleFunc("/rides/{id}/messages", s.requireAuth(s.handlePostMessage)).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}", s.requireAuth(s.handleCancel)).Methods(http.MethodDelete)

	api.HandleFunc("/me/rides", s.requireAuth(s.handleMyRides)).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", s.handleProfile).Methods(http.MethodGet)
	api.HandleFunc("/drivers/top", s.handleTopDrivers).Methods(http.MethodGet)

	api.HandleFunc("/assistant/support", s.handleSupport).Methods(http.MethodPost)
	api.HandleFunc("/assistant/plan", s.handlePlan).Methods(http.MethodPost)
	api.HandleFunc("/assistant/voice", s.requireAuth(s.handleVoice)).Methods(http.MethodPost)

	s.mux.HandleFunc("/ws/rides/{id}", s.requireAuth(s.handleChatSocket)).Methods(http.MethodGet)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods(http.MethodGet)
	s.mux.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for name, check := range s.ready {
		if err := check(r.Context()); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, state.ErrUserNotFound), errors.Is(err, state.ErrRideNotFound), errors.Is(err, state.ErrBookingNotFound):
		return http.StatusNotFound
	case errors.Is(err, state.ErrInvalidUser), errors.Is(err, state.ErrInvalidRide), errors.Is(err, state.ErrInvalidBooking),
		errors.Is(err, state.ErrInvalidRating), errors.Is(err, state.ErrEmptyMessage),
		errors.Is(err, marketplace.ErrInvalidAadhaar), errors.Is(err, marketplace.ErrInvalidLimit),
		errors.Is(err, auth.ErrWeakPassword), errors.Is(err, assistant.ErrBadPriority),
		errors.Is(err, discovery.ErrBadClock), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, state.ErrEmailTaken), errors.Is(err, state.ErrDuplicateID), errors.Is(err, state.ErrAlreadyRated),
		errors.Is(err, state.ErrAlreadyBooked), errors.Is(err, state.ErrInsufficientSeats),
		errors.Is(err, state.ErrBookingClosed), errors.Is(err, state.ErrOwnRide):
		return http.StatusConflict
	case errors.Is(err, state.ErrNotPassenger), errors.Is(err, state.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, marketplace.ErrPaymentFailed):
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.String("request_id", requestIDFromContext(r.Context())), zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}
