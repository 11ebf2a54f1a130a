package marketplace

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/observability"
	"github.com/example/ridelink/internal/state"
)

// Book holds the fare, claims the seats and then captures the payment.
// The booking is checked against the current state before the card is
// touched. A hold is released when the seats cannot be claimed, and a
// booking whose capture fails is cancelled again before the hold is released.
func (s *Service) Book(ctx context.Context, passengerID, rideID string, seats int) (models.Booking, error) {
	b := models.Booking{ID: s.newID(), RideID: rideID, PassengerID: passengerID, Seats: seats}

	_, dry, err := state.Apply(s.snapshot(), state.BookSeats{Booking: b, At: s.now()})
	if err != nil {
		observability.BookingsTotal.WithLabelValues("rejected").Inc()
		return models.Booking{}, err
	}

	start := time.Now()
	defer func() { observability.PaymentDuration.Observe(time.Since(start).Seconds()) }()

	ref, err := s.payments.Authorize(ctx, dry.Booking.Amount, s.currency, passengerID)
	if err != nil {
		observability.BookingsTotal.WithLabelValues("payment_failed").Inc()
		s.logger.Warn("payment authorization failed", zap.String("ride_id", rideID), zap.String("passenger_id", passengerID), zap.Error(err))
		return models.Booking{}, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	b.PaymentRef = ref
	_, ev, err := s.apply(ctx, state.BookSeats{Booking: b, At: s.now()})
	if err != nil {
		s.releaseHold(ctx, ref)
		observability.BookingsTotal.WithLabelValues("rejected").Inc()
		return models.Booking{}, err
	}

	if err := s.payments.Capture(ctx, ref); err != nil {
		observability.BookingsTotal.WithLabelValues("payment_failed").Inc()
		s.logger.Warn("payment capture failed", zap.String("booking_id", b.ID), zap.String("payment_ref", ref), zap.Error(err))
		// the request context may already be done; the compensation must still run
		bg := context.WithoutCancel(ctx)
		if _, _, cerr := s.apply(bg, state.CancelBooking{BookingID: b.ID, UserID: passengerID, At: s.now()}); cerr != nil {
			s.logger.Error("booking rollback failed", zap.String("booking_id", b.ID), zap.Error(cerr))
		}
		s.releaseHold(bg, ref)
		return models.Booking{}, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	s.logger.Info("booking confirmed", zap.String("booking_id", ev.Booking.ID), zap.String("ride_id", rideID),
		zap.Int("seats", ev.Booking.Seats), zap.Int64("amount", ev.Booking.Amount))
	return *ev.Booking, nil
}

func (s *Service) releaseHold(ctx context.Context, ref string) {
	if err := s.payments.Cancel(context.WithoutCancel(ctx), ref); err != nil {
		s.logger.Error("payment release failed", zap.String("payment_ref", ref), zap.Error(err))
	}
}

func (s *Service) Cancel(ctx context.Context, userID, bookingID string) (models.Booking, error) {
	_, ev, err := s.apply(ctx, state.CancelBooking{BookingID: bookingID, UserID: userID, At: s.now()})
	if err != nil {
		return models.Booking{}, err
	}
	s.logger.Info("booking cancelled", zap.String("booking_id", bookingID), zap.String("ride_id", ev.Booking.RideID))
	return *ev.Booking, nil
}
