package marketplace

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/ridelink/internal/assistant"
	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/state"
)

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// SubmitReview rates the ride's driver and returns the driver's new card.
func (s *Service) SubmitReview(ctx context.Context, raterID, rideID string, in ReviewInput) (DriverCard, error) {
	r := models.Rating{ID: s.newID(), RideID: rideID, RaterID: raterID, Rating: in.Rating, Comment: in.Comment}
	next, ev, err := s.apply(ctx, state.SubmitReview{Rating: r, At: s.now()})
	if err != nil {
		return DriverCard{}, err
	}
	driver, _ := next.User(ev.DriverID)
	s.logger.Info("review submitted", zap.String("ride_id", rideID), zap.String("driver_id", driver.ID),
		zap.Int("rating", in.Rating), zap.Float64("trust_score", driver.TrustScore))
	return *cardOf(driver), nil
}

// Summary condenses the reviews of a ride's driver.
func (s *Service) Summary(ctx context.Context, rideID string) (assistant.ReviewSummary, error) {
	st := s.snapshot()
	r, ok := st.Ride(rideID)
	if !ok {
		return assistant.ReviewSummary{}, state.ErrRideNotFound
	}
	driver, ok := st.User(r.DriverID)
	if !ok {
		return assistant.ReviewSummary{}, state.ErrUserNotFound
	}
	return s.assistant.SummarizeReviews(ctx, driver.Reviews), nil
}
