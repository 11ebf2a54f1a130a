package models

import "time"

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// VerificationType is how a user proved their identity at sign-up.
type VerificationType string

const (
	VerificationAadhaar  VerificationType = "Aadhaar"  // identity document
	VerificationLinkedIn VerificationType = "LinkedIn" // professional network
)

func (v VerificationType) Valid() bool {
	return v == VerificationAadhaar || v == VerificationLinkedIn
}

// DefaultTrustScore is the score every account starts with.
const DefaultTrustScore = 3.0

type User struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	PasswordHash     string           `json:"-"`
	AvatarURL        string           `json:"avatarUrl"`
	Gender           Gender           `json:"gender"`
	VerificationType VerificationType `json:"verificationType"`
	IsVerified       bool             `json:"isVerified"`
	TrustScore       float64          `json:"trustScore"` // 1.0..5.0
	Reviews          []Rating         `json:"reviews"`
	CreatedAt        time.Time        `json:"createdAt"`
}

type Rating struct {
	ID        string    `json:"id"`
	RideID    string    `json:"rideId"`
	RaterID   string    `json:"raterId"`
	Rating    int       `json:"rating"` // 1..5
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

type CarType string

const (
	CarHatchback CarType = "Hatchback"
	CarSedan     CarType = "Sedan"
	CarSUV       CarType = "SUV"
)

type Car struct {
	Make        string  `json:"make"`
	Model       string  `json:"model"`
	Color       string  `json:"color"`
	PlateNumber string  `json:"plateNumber"`
	Type        CarType `json:"type"`
}

type Ride struct {
	ID                   string    `json:"id"`
	DriverID             string    `json:"driverId"`
	From                 string    `json:"from"`
	To                   string    `json:"to"`
	DepartureDate        string    `json:"departureDate"` // YYYY-MM-DD
	DepartureTime        string    `json:"departureTime"` // e.g. 06:00 AM
	EstimatedArrivalTime string    `json:"estimatedArrivalTime"`
	PricePerSeat         int       `json:"pricePerSeat"`
	AvailableSeats       int       `json:"availableSeats"`
	Car                  Car       `json:"car"`
	Amenities            []string  `json:"amenities"`
	CreatedAt            time.Time `json:"createdAt"`
}

// SearchCriteria is built per search request and never stored.
type SearchCriteria struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Date  string `json:"date"`
	Seats int    `json:"seats"`
}

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID          string        `json:"id"`
	RideID      string        `json:"rideId"`
	PassengerID string        `json:"passengerId"`
	Seats       int           `json:"seats"`
	Amount      int64         `json:"amount"`
	PaymentRef  string        `json:"paymentRef"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type Message struct {
	ID        string    `json:"id"`
	RideID    string    `json:"rideId"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Conversation struct {
	RideID   string    `json:"rideId"`
	Messages []Message `json:"messages"`
}
