// Package marketplace is the application layer: it owns the current state,
// applies actions to it and fans the resulting events out to storage, the
// event bus, the score index and live chat.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/ridelink/internal/assistant"
	"github.com/example/ridelink/internal/auth"
	"github.com/example/ridelink/internal/eta"
	"github.com/example/ridelink/internal/events"
	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/observability"
	"github.com/example/ridelink/internal/payments"
	"github.com/example/ridelink/internal/scores"
	"github.com/example/ridelink/internal/state"
	"github.com/example/ridelink/internal/storage"
)

var (
	ErrInvalidAadhaar = errors.New("aadhaar number must be exactly 12 digits")
	ErrPaymentFailed  = errors.New("payment failed")
	ErrInvalidLimit   = errors.New("limit must be between 1 and 100")
)

// Broadcaster delivers a posted message to live chat sessions.
type Broadcaster interface {
	Broadcast(m models.Message) error
}

// Options wires a Service. Store, Payments, Tokens and Assistant are
// required; the rest fall back to no-op implementations.
type Options struct {
	Store     storage.Store
	Events    events.Publisher
	Scores    scores.Index
	Payments  payments.Gateway
	Assistant *assistant.Assistant
	ETA       *eta.Estimator
	Tokens    *auth.Tokens
	Chat      Broadcaster
	Logger    *zap.Logger

	Currency       string
	AutoReplyDelay time.Duration
}

type Service struct {
	mu sync.RWMutex
	st state.State

	store     storage.Store
	events    events.Publisher
	scores    scores.Index
	payments  payments.Gateway
	assistant *assistant.Assistant
	eta       *eta.Estimator
	tokens    *auth.Tokens
	chat      Broadcaster
	logger    *zap.Logger

	currency       string
	autoReplyDelay time.Duration

	timersMu sync.Mutex
	timers   map[*time.Timer]struct{}
	closed   bool

	now   func() time.Time
	newID func() string
}

// New loads the current state from the store.
func New(ctx context.Context, o Options) (*Service, error) {
	if o.Store == nil || o.Payments == nil || o.Tokens == nil || o.Assistant == nil {
		return nil, errors.New("marketplace: store, payments, tokens and assistant are required")
	}
	s := &Service{
		store:          o.Store,
		events:         o.Events,
		scores:         o.Scores,
		payments:       o.Payments,
		assistant:      o.Assistant,
		eta:            o.ETA,
		tokens:         o.Tokens,
		chat:           o.Chat,
		logger:         o.Logger,
		currency:       o.Currency,
		autoReplyDelay: o.AutoReplyDelay,
		timers:         make(map[*time.Timer]struct{}),
		now:            time.Now,
		newID:          uuid.NewString,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.scores == nil {
		s.scores = scores.NewMemoryIndex()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.currency == "" {
		s.currency = "inr"
	}

	st, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	s.st = st
	for _, u := range st.Users {
		if len(u.Reviews) == 0 {
			continue
		}
		if err := s.scores.Put(ctx, scoreEntry(u, s.now())); err != nil {
			s.logger.Warn("score index warmup failed", zap.String("driver_id", u.ID), zap.Error(err))
			break
		}
	}
	s.logger.Info("marketplace loaded",
		zap.Int("users", len(st.Users)),
		zap.Int("rides", len(st.Rides)),
		zap.Int("bookings", len(st.Bookings)))
	return s, nil
}

// snapshot returns the current state. State values are never mutated in
// place, so the copy is safe to read without the lock.
func (s *Service) snapshot() state.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st
}

// apply runs a transition and persists it before making it visible. A
// storage failure rejects the transition.
func (s *Service) apply(ctx context.Context, a state.Action) (state.State, state.Event, error) {
	s.mu.Lock()
	next, ev, err := state.Apply(s.st, a)
	if err != nil {
		s.mu.Unlock()
		return state.State{}, state.Event{}, err
	}
	if err := storage.Record(ctx, s.store, next, ev); err != nil {
		s.mu.Unlock()
		observability.SideEffectErrors.WithLabelValues("store").Inc()
		return state.State{}, state.Event{}, fmt.Errorf("persist %s: %w", ev.Type, err)
	}
	s.st = next
	s.mu.Unlock()

	s.afterApply(ctx, ev)
	return next, ev, nil
}

// afterApply runs the best-effort side effects of an event.
func (s *Service) afterApply(ctx context.Context, ev state.Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		observability.SideEffectErrors.WithLabelValues("events").Inc()
		s.logger.Warn("event publish failed", zap.String("type", string(ev.Type)), zap.Error(err))
	}
	switch ev.Type {
	case state.EventReviewSubmitted:
		observability.TrustRecomputes.Inc()
		e := scores.Entry{DriverID: ev.DriverID, Score: ev.TrustScore, ReviewCount: len(ev.Reviews), Updated: ev.At}
		if err := s.scores.Put(ctx, e); err != nil {
			observability.SideEffectErrors.WithLabelValues("scores").Inc()
			s.logger.Warn("score index update failed", zap.String("driver_id", ev.DriverID), zap.Error(err))
		}
	case state.EventRidePublished:
		observability.RidesPublished.Inc()
	case state.EventBookingConfirmed:
		observability.BookingsTotal.WithLabelValues("confirmed").Inc()
	case state.EventBookingCancelled:
		observability.BookingsTotal.WithLabelValues("cancelled").Inc()
	case state.EventMessagePosted:
		if s.chat != nil {
			// nobody online is not an error
			_ = s.chat.Broadcast(*ev.Message)
		}
	}
}

// Close stops pending auto-replies.
func (s *Service) Close() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	s.closed = true
	for t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

func scoreEntry(u models.User, at time.Time) scores.Entry {
	return scores.Entry{DriverID: u.ID, Score: u.TrustScore, ReviewCount: len(u.Reviews), Updated: at}
}
