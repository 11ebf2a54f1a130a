package marketplace

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/ridelink/internal/auth"
	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/state"
	"github.com/example/ridelink/internal/trust"
)

type SignUpInput struct {
	Name             string                  `json:"name"`
	Email            string                  `json:"email"`
	Password         string                  `json:"password"`
	Gender           models.Gender           `json:"gender"`
	VerificationType models.VerificationType `json:"verificationType"`
	AadhaarNumber    string                  `json:"aadhaarNumber,omitempty"`
}

// Session is returned by sign-up and login.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// SignUp creates an account. Aadhaar sign-ups are verified when a
// well-formed 12-digit number is supplied; LinkedIn verification is not
// available yet, so those accounts start unverified.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (Session, error) {
	verified := false
	if in.VerificationType == models.VerificationAadhaar {
		if !validAadhaar(in.AadhaarNumber) {
			return Session{}, ErrInvalidAadhaar
		}
		verified = true
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}
	u := models.User{
		ID:               s.newID(),
		Name:             in.Name,
		Email:            strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:     hash,
		Gender:           in.Gender,
		VerificationType: in.VerificationType,
		IsVerified:       verified,
	}
	u.AvatarURL = fmt.Sprintf("https://picsum.photos/seed/%s/200/200", u.ID)

	next, _, err := s.apply(ctx, state.SignUp{User: u, At: s.now()})
	if err != nil {
		return Session{}, err
	}
	created, _ := next.User(u.ID)
	s.logger.Info("user signed up", zap.String("user_id", created.ID), zap.String("verification", string(created.VerificationType)))
	return s.session(created)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, ok := s.snapshot().UserByEmail(strings.TrimSpace(email))
	if !ok {
		return Session{}, auth.ErrInvalidCredentials
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return Session{}, err
	}
	return s.session(u)
}

func (s *Service) session(u models.User) (Session, error) {
	tok, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: tok, User: u}, nil
}

// Authenticate resolves a bearer token to an existing user id.
func (s *Service) Authenticate(token string) (string, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return "", err
	}
	if _, ok := s.snapshot().User(id); !ok {
		return "", auth.ErrInvalidToken
	}
	return id, nil
}

type Profile struct {
	models.User
	Trust        trust.Breakdown `json:"trust"`
	RidesOffered int             `json:"ridesOffered"`
}

func (s *Service) UserProfile(ctx context.Context, userID string) (Profile, error) {
	st := s.snapshot()
	u, ok := st.User(userID)
	if !ok {
		return Profile{}, state.ErrUserNotFound
	}
	return Profile{User: u, Trust: trust.Explain(u.Reviews), RidesOffered: len(st.RidesOfferedBy(userID))}, nil
}

func validAadhaar(n string) bool {
	n = strings.ReplaceAll(strings.TrimSpace(n), " ", "")
	if len(n) != 12 {
		return false
	}
	for _, c := range n {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
