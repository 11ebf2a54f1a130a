// Package seed builds the demo marketplace the server starts with when no
// database is configured.
package seed

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/ridelink/internal/auth"
	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/state"
	"github.com/example/ridelink/internal/trust"
)

// DemoPassword is shared by every demo account.
const DemoPassword = "password123"

type demoUser struct {
	id, name, seed string
	gender         models.Gender
	verification   models.VerificationType
	verified       bool
	reviews        []models.Rating
}

func review(id, rideID, rater string, rating int, comment string) models.Rating {
	return models.Rating{ID: id, RideID: rideID, RaterID: rater, Rating: rating, Comment: comment}
}

var demoUsers = []demoUser{
	{"user_1", "Priya Sharma", "priya", models.GenderFemale, models.VerificationAadhaar, true, []models.Rating{
		review("r1", "ride_x1", "u3", 5, "Priya is an excellent and safe driver. The car was clean and the journey was very smooth. Highly recommend!"),
		review("r2", "ride_x2", "u4", 5, "Very punctual and professional. Felt very safe throughout the trip from Chennai to Bangalore."),
		review("r3", "ride_x3", "u5", 4, "Good driver, friendly conversation. A bit of a delay in starting but made up for it."),
	}},
	{"user_2", "Arjun Verma", "arjun", models.GenderMale, models.VerificationLinkedIn, true, []models.Rating{
		review("r4", "ride_x4", "u6", 5, "Arjun is a great co-passenger to have. On time and respectful."),
		review("r5", "ride_x5", "u7", 4, "The drive was great, but the music was a bit too loud for my taste. Otherwise, a solid 4 stars."),
	}},
	{"user_3", "Anjali Menon", "anjali", models.GenderFemale, models.VerificationAadhaar, true, []models.Rating{
		review("r6", "ride_x6", "u1", 5, "Anjali is the best! Very safe driver, super clean car, and she even offered snacks. It felt like travelling with a friend."),
		review("r7", "ride_x7", "u2", 5, "On time, professional, and a very comfortable ride. The women-only option is a fantastic feature."),
	}},
	{"user_4", "Vikram Singh", "vikram", models.GenderMale, models.VerificationLinkedIn, false, []models.Rating{
		review("r8", "ride_x8", "u9", 3, "The ride was okay, but the driver was 30 minutes late for pickup."),
		review("r9", "ride_x9", "u10", 4, "Decent trip, got me from A to B."),
		review("r10", "ride_x10", "u11", 2, "Car was not very clean and the driving was a bit aggressive for my liking."),
	}},
	{"user_passenger_1", "Rohan Mehta", "rohan", models.GenderMale, models.VerificationLinkedIn, true, nil},
}

var (
	creta  = models.Car{Make: "Hyundai", Model: "Creta", Color: "White", PlateNumber: "TN01AB1234", Type: models.CarSUV}
	swift  = models.Car{Make: "Maruti Suzuki", Model: "Swift", Color: "Red", PlateNumber: "TN02CD5678", Type: models.CarHatchback}
	seltos = models.Car{Make: "Kia", Model: "Seltos", Color: "Grey", PlateNumber: "TN03EF9012", Type: models.CarSUV}
	nexon  = models.Car{Make: "Tata", Model: "Nexon", Color: "Blue", PlateNumber: "TN04GH3456", Type: models.CarSUV}
)

// Demo returns the demo state with ride dates relative to now. Trust scores
// are computed from each user's reviews.
func Demo(now time.Time) (state.State, error) {
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return state.State{}, fmt.Errorf("hash demo password: %w", err)
	}
	day := func(offset int) string { return now.AddDate(0, 0, offset).Format(time.DateOnly) }

	var s state.State
	start := now.Add(-time.Hour)
	for i, du := range demoUsers {
		created := start.Add(time.Duration(i) * time.Minute)
		reviews := make([]models.Rating, len(du.reviews))
		for j, r := range du.reviews {
			r.CreatedAt = created
			reviews[j] = r
		}
		s.Users = append(s.Users, models.User{
			ID:               du.id,
			Name:             du.name,
			Email:            emailFor(du.name),
			PasswordHash:     hash,
			AvatarURL:        fmt.Sprintf("https://picsum.photos/seed/%s/200/200", du.seed),
			Gender:           du.gender,
			VerificationType: du.verification,
			IsVerified:       du.verified,
			TrustScore:       trust.Compute(reviews),
			Reviews:          reviews,
			CreatedAt:        created,
		})
	}

	rides := []models.Ride{
		{ID: "ride_1", DriverID: "user_1", From: "Chennai", To: "Bangalore", DepartureDate: day(1), DepartureTime: "06:00 AM", EstimatedArrivalTime: "12:00 PM", PricePerSeat: 850, AvailableSeats: 2, Car: creta},
		{ID: "ride_2", DriverID: "user_2", From: "Chennai", To: "Bangalore", DepartureDate: day(-1), DepartureTime: "07:30 AM", EstimatedArrivalTime: "01:30 PM", PricePerSeat: 800, AvailableSeats: 1, Car: swift},
		{ID: "ride_3", DriverID: "user_3", From: "Chennai", To: "Bangalore", DepartureDate: day(7), DepartureTime: "09:00 AM", EstimatedArrivalTime: "03:00 PM", PricePerSeat: 900, AvailableSeats: 3, Car: seltos},
		{ID: "ride_4", DriverID: "user_4", From: "Chennai", To: "Bangalore", DepartureDate: day(-7), DepartureTime: "05:00 AM", EstimatedArrivalTime: "11:00 AM", PricePerSeat: 750, AvailableSeats: 2, Car: nexon},
		{ID: "ride_5", DriverID: "user_1", From: "Bangalore", To: "Chennai", DepartureDate: day(2), DepartureTime: "04:00 PM", EstimatedArrivalTime: "10:00 PM", PricePerSeat: 850, AvailableSeats: 3, Car: creta},
	}
	// newest first, so ride_1 is the most recently created
	for i := range rides {
		rides[i].CreatedAt = now.Add(-time.Duration(i) * time.Minute)
	}
	s.Rides = rides

	booked := now.Add(-30 * time.Minute)
	s.Bookings = []models.Booking{{
		ID: "booking_1", RideID: "ride_1", PassengerID: "user_passenger_1", Seats: 1, Amount: 850,
		PaymentRef: "seed", Status: models.BookingConfirmed, CreatedAt: booked, UpdatedAt: booked,
	}}

	s.Conversations = []models.Conversation{{
		RideID: "ride_1",
		Messages: []models.Message{
			{ID: "msg_1", RideID: "ride_1", SenderID: "user_passenger_1", Text: "Hi Priya! Just booked my seat. Can you let me know the exact pickup point?", Timestamp: booked.Add(time.Minute)},
			{ID: "msg_2", RideID: "ride_1", SenderID: "user_1", Text: "Hi there! Of course. I will pick you up from the main entrance of Koyambedu Bus Stand. Is that okay?", Timestamp: booked.Add(2 * time.Minute)},
		},
	}}
	return s, nil
}

func emailFor(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ".")) + "@example.com"
}
